package auth

import "fmt"

const (
	msgShareContact      = "To log in, share your phone number using the button below."
	msgEnterCode         = "Enter the login code you received:"
	msgCodeRejected      = "That code was not accepted. Enter it again."
	msgPasswordRequired  = "This account has two-step verification enabled. Send your password as a message."
	msgPasswordRejected  = "The password was not accepted. Send it again."
	msgTooManyPasswords  = "Too many wrong passwords. Send /login to start over."
	msgCodeExpired       = "The login code has expired. Send /login to request a new one."
	msgInvalidPhone      = "That does not look like a phone number. Send /login to try again."
	msgKeypadFailed      = "Could not show the code keypad. Send /login to try again."
	msgConnectFailed     = "Could not reach the messaging service. Send /login to try again."
	msgCodeRequestFailed = "Could not request a login code. Send /login to try again."
	msgNotAuthorized     = "The sign-in did not complete. Send /login to try again."
	msgStoreFailed       = "Signed in, but the session could not be saved. Send /login to try again."
	msgCancelled         = "Login cancelled."
	msgIdleExpired       = "Your login timed out. Send /login to start again."
	msgShuttingDown      = "The service is restarting. Send /login to start again."
)

// Transient notices returned to the front-end for keypad presses.
const (
	NoticeNotNow       = "Nothing to do right now. Send /login to start."
	NoticeCodeTooLong  = "The code cannot be longer than 10 digits."
	NoticeInvalidKey   = "Unknown key."
	NoticeCodeEmpty    = "Enter the code first."
	NoticeCodeRejected = "Code not accepted."
)

func msgRemoteError(detail string) string {
	if detail == "" {
		return "The messaging service returned an error. Send /login to try again."
	}
	return fmt.Sprintf("The messaging service returned an error: %s. Send /login to try again.", detail)
}

func msgSuccess(phone string) string {
	return fmt.Sprintf("Done. The session for %s is saved.", phone)
}
