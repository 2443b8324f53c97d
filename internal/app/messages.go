// internal/app/messages.go
package app

import (
	"fmt"
	"strings"

	"compliance_notifier/internal/domain/dueitem"
	"compliance_notifier/internal/domain/schedule"
)

// emailLayout is the shared shell every outbound email is rendered
// into: greeting, body, optional urgency banner, CTA button, footer.
type emailLayout struct {
	RecipientName string
	BodyHTML      string
	CTAText       string
	CTAURL        string
	BannerText    string
	BannerColor   string
	FooterNote    string
}

func renderEmail(l emailLayout) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: -apple-system, 'Segoe UI', sans-serif; max-width: 600px; margin: 0 auto; padding: 24px;">`)
	if l.BannerText != "" {
		fmt.Fprintf(&b, `<div style="background: %s; color: #ffffff; border-radius: 6px; padding: 10px 16px; font-weight: 600; margin-bottom: 16px;">%s</div>`, l.BannerColor, l.BannerText)
	}
	name := l.RecipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, `<p>Hi %s,</p>`, name)
	b.WriteString(l.BodyHTML)
	if l.CTAText != "" {
		fmt.Fprintf(&b, `<p style="margin: 24px 0;"><a href="%s" style="background: #0f172a; color: #ffffff; padding: 12px 20px; border-radius: 6px; text-decoration: none; font-weight: 600;">%s</a></p>`, l.CTAURL, l.CTAText)
	}
	if l.FooterNote != "" {
		fmt.Fprintf(&b, `<p style="color: #64748b; font-size: 12px; margin-top: 32px;">%s</p>`, l.FooterNote)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func daysLabel(daysOut int) string {
	switch daysOut {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", daysOut)
	}
}

func formattedDueDate(item *dueitem.Item) string {
	return item.DueDate.Format("Monday, January 2, 2006")
}

// emailContent renders the subject and HTML body for one recipient of a
// fired window. daysUntil is the item's actual distance from its due
// date on the day of the run, which may be tighter than the window's
// own offset when the job skipped days.
func emailContent(item *dueitem.Item, w schedule.Window, daysUntil int, recipientName, appURL string) (string, string) {
	if w.DaysOut < 0 || daysUntil < 0 {
		return overdueEmail(item, w, -daysUntil, recipientName, appURL)
	}
	if item.Kind == dueitem.KindDocument {
		return documentEmail(item, w, recipientName, appURL)
	}
	if w.DaysOut == 0 {
		return dueTodayEmail(item, recipientName, appURL)
	}
	return serviceReminderEmail(item, w, recipientName, appURL)
}

func serviceReminderEmail(item *dueitem.Item, w schedule.Window, recipientName, appURL string) (string, string) {
	subjects := map[int]string{
		30: fmt.Sprintf("Upcoming Service Reminder — %s (%s)", item.LocationName, item.Title),
		14: fmt.Sprintf("Service Due in 2 Weeks — %s — Please Confirm", item.LocationName),
		7:  fmt.Sprintf("Service Due Next Week — %s — Action Required", item.LocationName),
		3:  fmt.Sprintf("Service Due in 3 Days — %s — Please Confirm Schedule", item.LocationName),
		1:  fmt.Sprintf("Service Due Tomorrow — %s — Upload Certificate After Completion", item.LocationName),
	}
	subject, ok := subjects[w.DaysOut]
	if !ok {
		subject = fmt.Sprintf("Service Reminder — %s", item.LocationName)
	}

	var action string
	switch w.Urgency {
	case schedule.UrgencyHigh:
		action = `<p style="color: #dc2626; font-weight: 600;">Please upload your service certificate after completing the job.</p>`
	case schedule.UrgencyMedium:
		action = `<p>Please confirm your appointment is scheduled. If you need to reschedule, contact your client as soon as possible.</p>`
	default:
		action = `<p>This is an early notice so you can plan ahead. Please ensure this service is scheduled.</p>`
	}

	body := fmt.Sprintf(`
    <p>You have a scheduled service due %s at <strong>%s</strong>:</p>
    <div style="background: #f8fafc; border: 1px solid #e2e8f0; border-radius: 8px; padding: 16px; margin: 16px 0;">
      <p style="font-weight: 600; margin: 0 0 4px 0;">%s</p>
      <p style="color: #64748b; font-size: 14px; margin: 0;">Due: %s</p>
    </div>
    %s`, daysLabel(w.DaysOut), item.LocationName, item.Title, formattedDueDate(item), action)

	layout := emailLayout{
		RecipientName: recipientName,
		BodyHTML:      body,
		CTAText:       "View Service Details →",
		CTAURL:        appURL + "/vendor/upload",
		FooterNote:    "You received this because you have a scheduled service with a client organization.",
	}
	switch w.Urgency {
	case schedule.UrgencyMedium:
		layout.BannerText, layout.BannerColor = "Action Required — Service Approaching", "#f59e0b"
		layout.CTAText = "Confirm Appointment →"
	case schedule.UrgencyHigh:
		layout.BannerText, layout.BannerColor = "Service Due Tomorrow — Act Now", "#dc2626"
		layout.CTAText = "Upload Certificate →"
	}
	return subject, renderEmail(layout)
}

func dueTodayEmail(item *dueitem.Item, recipientName, appURL string) (string, string) {
	subject := fmt.Sprintf("Service Due Today — %s at %s", item.Title, item.LocationName)
	body := fmt.Sprintf(`
    <p>A vendor service is <strong>due today</strong> at <strong>%s</strong>:</p>
    <div style="background: #fef3c7; border: 1px solid #f59e0b; border-radius: 8px; padding: 16px; margin: 16px 0;">
      <p style="font-weight: 600; margin: 0 0 4px 0; color: #92400e;">%s</p>
      <p style="color: #92400e; font-size: 14px; margin: 0;">Due: Today</p>
    </div>
    <p>Please verify the vendor arrives and completes the service. Request a certificate of completion.</p>`,
		item.LocationName, item.Title)
	return subject, renderEmail(emailLayout{
		RecipientName: recipientName,
		BodyHTML:      body,
		CTAText:       "View Equipment →",
		CTAURL:        appURL + "/equipment",
		BannerText:    "Service Due Today",
		BannerColor:   "#f59e0b",
	})
}

func overdueEmail(item *dueitem.Item, w schedule.Window, daysOverdue int, recipientName, appURL string) (string, string) {
	noun := "service"
	cta, ctaURL := "Upload Certificate →", appURL+"/vendor/upload"
	advice := `<p>This service is overdue. Please upload documentation or contact your client to reschedule.</p>`
	if item.Kind == dueitem.KindDocument {
		noun = "document"
		cta, ctaURL = "Renew Document →", appURL+"/documents"
		advice = `<p style="color: #dc2626; font-weight: 600;">This document has lapsed. Upload a renewed copy as soon as possible to stay compliant.</p>`
	} else if w.Audience == schedule.AudienceClient {
		cta, ctaURL = "View Equipment →", appURL+"/equipment"
		advice = `<p style="color: #dc2626; font-weight: 600;">Contact your vendor or schedule an alternative service provider.</p>`
	}

	subject := fmt.Sprintf("OVERDUE: %s at %s — %d Days Past Due", item.Title, item.LocationName, daysOverdue)
	if item.Kind == dueitem.KindDocument {
		subject = fmt.Sprintf("%s is OVERDUE - Immediate renewal required", item.Title)
	}
	body := fmt.Sprintf(`
    <p>A %s is <strong>%d days overdue</strong> at <strong>%s</strong>:</p>
    <div style="background: #fef2f2; border: 2px solid #dc2626; border-radius: 8px; padding: 16px; margin: 16px 0;">
      <p style="font-weight: 600; margin: 0 0 4px 0; color: #991b1b;">%s</p>
      <p style="color: #991b1b; font-size: 14px; margin: 0;">Was due: %s (%d days overdue)</p>
    </div>
    %s`, noun, daysOverdue, item.LocationName, item.Title, formattedDueDate(item), daysOverdue, advice)
	return subject, renderEmail(emailLayout{
		RecipientName: recipientName,
		BodyHTML:      body,
		CTAText:       cta,
		CTAURL:        ctaURL,
		BannerText:    "OVERDUE — Immediate Action Required",
		BannerColor:   "#7f1d1d",
	})
}

func documentEmail(item *dueitem.Item, w schedule.Window, recipientName, appURL string) (string, string) {
	subjects := map[int]string{
		30: fmt.Sprintf("%s expires in 30 days - Action needed", item.Title),
		14: fmt.Sprintf("%s expires in 14 days - Urgent", item.Title),
		7:  fmt.Sprintf("%s expires in 7 days - CRITICAL", item.Title),
		1:  fmt.Sprintf("%s expires TOMORROW - IMMEDIATE ACTION REQUIRED", item.Title),
		0:  fmt.Sprintf("%s EXPIRED TODAY - IMMEDIATE ACTION REQUIRED", item.Title),
	}
	subject, ok := subjects[w.DaysOut]
	if !ok {
		subject = fmt.Sprintf("Document Expiration Notice - %s", item.Title)
	}

	expiresLine := fmt.Sprintf("Expires: %s", formattedDueDate(item))
	if w.DaysOut == 0 {
		expiresLine = "Expired: Today"
	}
	body := fmt.Sprintf(`
    <p>The following compliance document for <strong>%s</strong> requires attention:</p>
    <div style="background: #f8fafc; border: 1px solid #e2e8f0; border-radius: 8px; padding: 16px; margin: 16px 0;">
      <p style="font-weight: 600; margin: 0 0 4px 0;">%s</p>
      <p style="color: #64748b; font-size: 14px; margin: 0;">%s</p>
    </div>
    <p>Renew and upload the new version before the expiration date to keep your records complete.</p>`,
		item.LocationName, item.Title, expiresLine)

	layout := emailLayout{
		RecipientName: recipientName,
		BodyHTML:      body,
		CTAText:       "View Documents →",
		CTAURL:        appURL + "/documents",
	}
	switch w.Urgency {
	case schedule.UrgencyMedium:
		layout.BannerText, layout.BannerColor = "Document Expiring Soon", "#f59e0b"
	case schedule.UrgencyHigh:
		layout.BannerText, layout.BannerColor = "Document Expiring — Action Required", "#dc2626"
	case schedule.UrgencyCritical:
		layout.BannerText, layout.BannerColor = "Document Expiration — Immediate Action Required", "#7f1d1d"
	}
	return subject, renderEmail(layout)
}

// smsContent renders the plain-text SMS body for a fired window.
func smsContent(item *dueitem.Item, w schedule.Window, daysUntil int) string {
	if w.DaysOut < 0 || daysUntil < 0 {
		return fmt.Sprintf("OVERDUE: %s at %s is %d days past due. Please upload documentation or contact your client.",
			item.Title, item.LocationName, -daysUntil)
	}
	prefix := ""
	if w.Urgency.Rank() >= schedule.UrgencyHigh.Rank() {
		prefix = "URGENT: "
	}
	if item.Kind == dueitem.KindDocument {
		return fmt.Sprintf("%s%s expires %s. Renew and upload it to stay compliant.",
			prefix, item.Title, daysLabel(w.DaysOut))
	}
	return fmt.Sprintf("%s%s at %s is due %s. Please confirm your schedule.",
		prefix, item.Title, item.LocationName, daysLabel(w.DaysOut))
}
