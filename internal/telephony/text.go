package telephony

import "fmt"

// Spoken and texted copy used by the call and verification flows. Kept in
// one place so wording changes don't require touching flow logic.
const (
	textNoHotline = "No hotline was found for this number."

	// Deliberately vague so a blocked caller can't tell they are blocked.
	textBlocked = "This number is currently unavailable."

	textNoMembers = "Unfortunately, no verified members belong to this hotline."

	textNotMember = "You're not a verified member of this hotline."

	// Distinct wording from textNoHotline: a dial was placed for a hotline
	// that has since vanished, which should never happen.
	textAnswerError = "Oh no, an error occurred and we couldn't find the hotline for this call."

	textConfirmed = "Thank you, your number is confirmed."
)

func defaultGreeting(hotlineName string) string {
	return fmt.Sprintf(
		"Thank you for calling the Friend Hotline for %s. This will dial all of the hotline members and put you on hold until one or more friends answer.",
		hotlineName)
}

func answerAnnouncement(memberName string) string {
	return fmt.Sprintf("%s is joining this call.", memberName)
}

func answerGreeting(memberName, hotlineName string) string {
	return fmt.Sprintf("Hello %s, connecting you to %s.", memberName, hotlineName)
}

func verificationRequest(hotlineName, domain string) string {
	return fmt.Sprintf(
		"You've been added as a member of the %s hotline on %s. Reply with YES or OK to confirm.",
		hotlineName, domain)
}
