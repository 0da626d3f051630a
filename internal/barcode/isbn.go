package barcode

import "strings"

// NormalizeISBN accepts an ISBN-10 or ISBN-13 (hyphens and spaces allowed)
// and returns the ISBN-13 form when the checksum is valid.
func NormalizeISBN(s string) (string, bool) {
	clean := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s)))

	switch len(clean) {
	case 13:
		if !allDigits(clean) || !(strings.HasPrefix(clean, "978") || strings.HasPrefix(clean, "979")) {
			return "", false
		}
		if isbn13Check(clean[:12]) != clean[12] {
			return "", false
		}
		return clean, true
	case 10:
		if !allDigits(clean[:9]) || !(isDigit(clean[9]) || clean[9] == 'X') {
			return "", false
		}
		if isbn10Check(clean[:9]) != clean[9] {
			return "", false
		}
		body := "978" + clean[:9]
		return body + string(isbn13Check(body)), true
	}
	return "", false
}

// ISBN10 converts a 978-prefixed ISBN-13 to ISBN-10.
func ISBN10(isbn13 string) (string, bool) {
	n, ok := NormalizeISBN(isbn13)
	if !ok || !strings.HasPrefix(n, "978") {
		return "", false
	}
	body := n[3:12]
	return body + string(isbn10Check(body)), true
}

func isbn13Check(first12 string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(first12[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

func isbn10Check(first9 string) byte {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(first9[i]-'0') * (10 - i)
	}
	c := (11 - sum%11) % 11
	if c == 10 {
		return 'X'
	}
	return byte('0' + c)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
