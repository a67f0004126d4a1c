package mail

import (
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// SendStaleDigest emails one owner the list of their leads that have sat in
// the same stage for a week or more.
func (s *EmailSender) SendStaleDigest(to string, digest StaleDigest) error {
	if len(digest.Entries) == 0 {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "The following %d lead(s) have been stuck in the same stage for 7+ days:\n\n", len(digest.Entries))
	for _, e := range digest.Entries {
		fmt.Fprintf(&body, "  - %s (%s): %d days in %q\n", e.Name, e.LeadID, e.DaysInStage, e.Stage)
	}
	body.WriteString("\nPlease follow up or archive them.\n")

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Stale lead digest: %d lead(s) need attention", len(digest.Entries)))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send stale digest: %w", err)
	}
	return nil
}
