package commentator

import "fmt"

func statusIdle() Status {
	return Status{State: StateIdle, Text: "Sleeping. Press start to wake me up.", Emoji: "😴"}
}

func statusWaitingForSomeone() Status {
	return Status{Text: "Waiting for someone to show up...", Emoji: "👀"}
}

func statusLeftAlone() Status {
	return Status{Text: "Everybody left. I'll wait here.", Emoji: "🥲"}
}

func statusHello() Status {
	return Status{Text: "Oh, hello there! Let me have a look at you.", Emoji: "👋"}
}

func statusStillHere() Status {
	return Status{Text: "Still here? I already said what I had to say.", Emoji: "🤐"}
}

func statusNoHardFeelings() Status {
	return Status{Text: "No problem, I won't remember you.", Emoji: "🙂"}
}

func statusAnythingElse() Status {
	return Status{Text: "Anyone else I should know?", Emoji: "🤔"}
}

func statusLooking(identifiedBefore bool) Status {
	if identifiedBefore {
		return Status{Text: "Keeping an eye on things...", Emoji: "🔍"}
	}
	return Status{Text: "Looking for faces...", Emoji: "🔍"}
}

func statusIdentifying(faces int) Status {
	if faces == 1 {
		return Status{Text: "I see a face. Do I know you?", Emoji: "🧐"}
	}
	return Status{Text: fmt.Sprintf("I see %d faces. Do I know you?", faces), Emoji: "🧐"}
}

func statusThrottled() Status {
	return Status{Text: "Too many faces at once. Taking a short break.", Emoji: "⏳"}
}

func statusThinking() Status {
	return Status{Text: "Thinking of something to say...", Emoji: "💭"}
}

func statusAsking(remaining int) Status {
	if remaining > 1 {
		return Status{Text: fmt.Sprintf("I don't know you yet. Shall I remember you? (%d new faces)", remaining), Emoji: "🙋"}
	}
	return Status{Text: "I don't know you yet. Shall I remember you?", Emoji: "🙋"}
}

func statusCreating(name string) Status {
	return Status{Text: fmt.Sprintf("Nice to meet you, %s. Memorizing your face...", name), Emoji: "🧠"}
}

func statusSpeaking(name string, idx, count int) Status {
	if count > 1 {
		return Status{Text: fmt.Sprintf("Talking to %s (%d of %d)", name, idx+1, count), Emoji: "🗣️"}
	}
	return Status{Text: fmt.Sprintf("Talking to %s", name), Emoji: "🗣️"}
}
