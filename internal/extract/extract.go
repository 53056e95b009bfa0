// Package extract derives display metadata from raw SMS text: the OTP code,
// the sending service, the country flag and a masked phone number.
//
// Everything here is a pure function; callers may use it from any goroutine.
package extract

import (
	"regexp"
	"strings"

	"github.com/danhigham/otpfeed/internal/domain"
)

// DefaultService is returned when no brand keyword matches.
const DefaultService = "SMS Service"

// Globe is returned when a country cannot be resolved to a flag.
const Globe = "🌍"

const maskDots = "•••"

// otpPatterns are tried in order; the first pattern that matches wins.
// Each pattern captures the code in group 1.
var otpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{3}[-\s]?\d{3})`),
	regexp.MustCompile(`(\d{4}[-\s]?\d{4})`),
	regexp.MustCompile(`(?i)(?:code|kode|otp|كود)[:\s]*(\d{4,8})`),
	regexp.MustCompile(`(\d{6})`),
	regexp.MustCompile(`(\d{4,8})`),
}

var separatorStripper = strings.NewReplacer(" ", "", "-", "", "\t", "", "\n", "", "\r", "")

// ExtractOTP returns the first code found in content, with separators
// removed, or domain.OTPNotFound.
func ExtractOTP(content string) string {
	if content == "" {
		return domain.OTPNotFound
	}
	for _, re := range otpPatterns {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		if code := separatorStripper.Replace(m[1]); code != "" {
			return code
		}
	}
	return domain.OTPNotFound
}

type serviceKeyword struct {
	keyword string
	name    string
}

// services is matched in declaration order.
var services = []serviceKeyword{
	{"whatsapp", "WhatsApp"},
	{"telegram", "Telegram"},
	{"facebook", "Facebook"},
	{"instagram", "Instagram"},
	{"twitter", "Twitter"},
	{"google", "Google"},
	{"tiktok", "TikTok"},
	{"snapchat", "Snapchat"},
	{"adobe", "Adobe"},
	{"microsoft", "Microsoft"},
	{"apple", "Apple"},
	{"amazon", "Amazon"},
}

// DetectService maps a brand keyword found anywhere in content to its
// display name.
func DetectService(content string) string {
	lower := strings.ToLower(content)
	for _, s := range services {
		if strings.Contains(lower, s.keyword) {
			return s.name
		}
	}
	return DefaultService
}

// MaskPhone hides the middle of a phone number for display.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || phone == "Unknown" {
		return "Unknown"
	}
	r := []rune(phone)
	n := len(r)
	switch {
	case n <= 6:
		return string(r[:min(2, n)]) + maskDots + string(r[n-1:])
	case r[0] == '+':
		return string(r[:5]) + maskDots + string(r[n-4:])
	default:
		return string(r[:4]) + maskDots + string(r[n-4:])
	}
}
