// Package shop holds the business identity printed on receipts and emails.
package shop

import "strings"

// Profile describes the shop.
type Profile struct {
	Name      string   `json:"name"`
	Motto     string   `json:"motto"`
	Phones    []string `json:"phones"`
	Currency  string   `json:"currency"`
	JobPrefix string   `json:"job_prefix"`
}

// DefaultProfile returns the profile used when nothing is configured.
func DefaultProfile() Profile {
	return Profile{
		Name:      "Dream Computer Solutions",
		Motto:     "We build your dream.",
		Phones:    []string{"94 76 987 3327", "+94 474 490 022"},
		Currency:  "LKR",
		JobPrefix: "JOB",
	}
}

// Contacts joins the phone numbers for a single header line.
func (p Profile) Contacts() string {
	return strings.Join(p.Phones, " | ")
}

// PrimaryPhone returns the first phone number, or an empty string.
func (p Profile) PrimaryPhone() string {
	if len(p.Phones) == 0 {
		return ""
	}
	return p.Phones[0]
}
