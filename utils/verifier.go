package utils

import (
	"strings"

	"github.com/badoux/checkmail"
	"github.com/likexian/whois"
)

type AddressCheckResult struct {
	Email   string `json:"email"`
	Status  string `json:"status"` // valid, invalid, unknown
	Details string `json:"details,omitempty"`
	WHOIS   string `json:"whois,omitempty"`
}

// CheckEmailAddress validates the syntax and domain of an email address before
// an account is added to the pool. It does not probe the mailbox itself;
// deliverability is proven later by the SMTP/IMAP connection checks.
func CheckEmailAddress(email string) *AddressCheckResult {
	email = strings.ToLower(strings.TrimSpace(email))
	result := &AddressCheckResult{Email: email, Status: "unknown"}

	if err := checkmail.ValidateFormat(email); err != nil {
		result.Status = "invalid"
		result.Details = "invalid email format: " + err.Error()
		return result
	}

	domain := DomainFromEmail(email)
	if domain == "" {
		result.Status = "invalid"
		result.Details = "invalid email format"
		return result
	}

	if err := checkmail.ValidateHost(email); err != nil {
		if smtpErr, ok := err.(checkmail.SmtpError); ok && smtpErr.Code() == "550" {
			result.Status = "invalid"
			result.Details = "mailbox rejected: " + smtpErr.Error()
			return result
		}
		// Connection refused or greylisting; leave status unknown.
		result.Details = "host check inconclusive: " + err.Error()
	} else {
		result.Status = "valid"
	}

	if whoisInfo, err := whois.Whois(domain); err == nil {
		result.WHOIS = whoisInfo
	}

	return result
}
