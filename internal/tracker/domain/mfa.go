package domain

// MFAEnrollment is returned when a user starts TOTP enrollment.
type MFAEnrollment struct {
	Secret     string // base32
	OTPAuthURL string // otpauth:// URL for QR rendering
	Issuer     string
	Account    string
}
