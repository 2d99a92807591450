package telephony

// Call control scripts are expressed as Nexmo NCCO actions: an ordered
// list of JSON objects the provider executes against the call leg.

// HoldMusicURL is played to a caller waiting alone in a conference.
const HoldMusicURL = "https://assets.ctfassets.net/j7pfe8y48ry3/530pLnJVZmiUu8mkEgIMm2/dd33d28ab6af9a2d32681ae80004886e/oaklawn-dreams.mp3"

// Action is a single NCCO call-control step.
type Action struct {
	Action         string   `json:"action"`
	Text           string   `json:"text,omitempty"`
	Name           string   `json:"name,omitempty"`
	StartOnEnter   *bool    `json:"startOnEnter,omitempty"`
	EndOnExit      *bool    `json:"endOnExit,omitempty"`
	MusicOnHoldURL []string `json:"musicOnHoldUrl,omitempty"`
}

// Talk returns a text-to-speech step.
func Talk(text string) Action {
	return Action{Action: "talk", Text: text}
}

// WaitInConference returns a step joining the named conference without
// starting it, playing hold music until another participant connects.
func WaitInConference(name string) Action {
	f := false
	return Action{
		Action:         "conversation",
		Name:           name,
		StartOnEnter:   &f,
		EndOnExit:      &f,
		MusicOnHoldURL: []string{HoldMusicURL},
	}
}

// ErrorScript returns the terminal script spoken when a call webhook
// cannot be processed at all. The provider treats a missing script as a
// dead call, so even hard failures speak something.
func ErrorScript() []Action {
	return []Action{Talk(textAnswerError)}
}

// JoinConference returns a step connecting a participant into the named
// conference, starting it on entry.
func JoinConference(name string) Action {
	tr := true
	return Action{
		Action:       "conversation",
		Name:         name,
		StartOnEnter: &tr,
	}
}
