package domain

import "strings"

// FormatE164 returns phone in international form. Numbers without a leading
// "+" are prefixed with defaultCountryCode.
func FormatE164(phone, defaultCountryCode string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + strings.TrimPrefix(defaultCountryCode, "+") + phone
}
