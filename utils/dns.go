package utils

import (
	"fmt"
	"net"
	"strings"

	"warmbox/models"
)

// DomainFromEmail extracts the domain part of an email address.
func DomainFromEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// GenerateDNSRecords returns the recommended SPF, DKIM and DMARC records for
// an account's sending domain. The DKIM value is a placeholder until the user
// pastes their provider's public key.
func GenerateDNSRecords(account *models.EmailAccount) []models.DomainDNSRecord {
	domain := DomainFromEmail(account.EmailAddress)

	return []models.DomainDNSRecord{
		{
			EmailAccountID: account.ID,
			RecordType:     "SPF",
			RecordName:     domain,
			RecordValue:    fmt.Sprintf("v=spf1 include:_spf.%s ~all", domain),
		},
		{
			EmailAccountID: account.ID,
			RecordType:     "DKIM",
			RecordName:     fmt.Sprintf("mail._domainkey.%s", domain),
			RecordValue:    "v=DKIM1; k=rsa; p=YOUR_PUBLIC_KEY_HERE",
		},
		{
			EmailAccountID: account.ID,
			RecordType:     "DMARC",
			RecordName:     fmt.Sprintf("_dmarc.%s", domain),
			RecordValue:    fmt.Sprintf("v=DMARC1; p=none; sp=none; adkim=r; aspf=r; fo=1; rua=mailto:dmarc@%s;", domain),
		},
	}
}

// VerifyDNSRecord checks whether a TXT lookup for the record's name contains
// the expected marker (v=spf1, v=DKIM1, v=DMARC1).
func VerifyDNSRecord(record *models.DomainDNSRecord) (bool, error) {
	var marker string
	switch record.RecordType {
	case "SPF":
		marker = "v=spf1"
	case "DKIM":
		marker = "v=DKIM1"
	case "DMARC":
		marker = "v=DMARC1"
	default:
		return false, fmt.Errorf("unknown record type: %s", record.RecordType)
	}

	txts, err := net.LookupTXT(record.RecordName)
	if err != nil {
		if dnsErr, ok := err.(*net.DNSError); ok && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}

	for _, txt := range txts {
		if strings.Contains(txt, marker) {
			return true, nil
		}
	}
	return false, nil
}
