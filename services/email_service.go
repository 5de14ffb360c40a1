// File: /services/email_service.go
package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"communehub-api/config"
	"communehub-api/models"
)

// EmailService delivers membership notification emails over SMTP. Every send
// is best-effort; callers log failures and move on.
type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config: cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// SendMembershipEmail emails one recipient about a membership event in the
// named community.
func (es *EmailService) SendMembershipEmail(toEmail, toName, communityName string, event models.MembershipEvent) error {
	subject, body := membershipEmailBody(toName, communityName, event)

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", es.config.FromName, es.config.FromEmail))
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2>CommuneHub</h2>
        <p>%s</p>
        <p style="color: #666; font-size: 12px;">This is an automated email, please do not reply.</p>
    </div>
</body>
</html>`, body))

	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send membership email: %w", err)
	}
	return nil
}

func membershipEmailBody(name, community string, event models.MembershipEvent) (subject, body string) {
	switch event.Type {
	case models.NotificationTypeJoinRequest:
		return fmt.Sprintf("New join request in %s", community),
			fmt.Sprintf("Hi %s, a user has requested to join %s. Review the request in the app.", name, community)
	case models.NotificationTypeRequestApproved:
		return fmt.Sprintf("You're in! Welcome to %s", community),
			fmt.Sprintf("Hi %s, your request to join %s has been approved.", name, community)
	case models.NotificationTypeRequestRejected:
		return fmt.Sprintf("Your request to join %s", community),
			fmt.Sprintf("Hi %s, your request to join %s was not approved.", name, community)
	case models.NotificationTypeMemberBanned:
		body := fmt.Sprintf("Hi %s, you have been banned from %s.", name, community)
		if event.Reason != "" {
			body += " Reason: " + event.Reason
		}
		return fmt.Sprintf("You have been banned from %s", community), body
	case models.NotificationTypeMemberUnbanned:
		return fmt.Sprintf("Your ban in %s was lifted", community),
			fmt.Sprintf("Hi %s, your ban in %s has been lifted. You may request to join again.", name, community)
	case models.NotificationTypeMemberLeft:
		return fmt.Sprintf("A member left %s", community),
			fmt.Sprintf("Hi %s, a member has left %s.", name, community)
	case models.NotificationTypeRoleChanged:
		return fmt.Sprintf("Your role in %s changed", community),
			fmt.Sprintf("Hi %s, your role in %s is now %s.", name, community, event.Role)
	default:
		return fmt.Sprintf("Update from %s", community),
			fmt.Sprintf("Hi %s, your membership in %s was updated.", name, community)
	}
}
