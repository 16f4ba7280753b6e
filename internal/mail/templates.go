package mail

import "fmt"

// OTPBody renders the verification code mail.
func OTPBody(firstName, code string) string {
	return fmt.Sprintf(`<div style="font-family: sans-serif">
<p>Hi %s,</p>
<p>Your verification code is:</p>
<p style="font-size: 24px; font-weight: bold; letter-spacing: 4px">%s</p>
<p>The code expires in 10 minutes.</p>
</div>`, firstName, code)
}

// ResetBody renders the password reset mail.
func ResetBody(firstName, resetURL string) string {
	return fmt.Sprintf(`<div style="font-family: sans-serif">
<p>Hi %s,</p>
<p>We received a request to reset your password. The link below is valid for 10 minutes:</p>
<p><a href="%s">%s</a></p>
<p>If you did not request this, you can ignore this mail.</p>
</div>`, firstName, resetURL, resetURL)
}
