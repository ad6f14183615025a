package script

import "fmt"

// Speaker profiles steer the two debate voices. Doug carries the
// pro-market line, Claire the consumer-protection line; both stay civil.
const (
	dougProfile = `DOUG is a pro-innovation energy analyst. He is optimistic about
markets, deregulation, and new technology. He speaks in punchy, confident
sentences, cites numbers when he has them, and enjoys a light jab at
bureaucracy. He never gets personal.`

	claireProfile = `CLAIRE is a consumer advocate and former utility regulator. She
is skeptical of market hype, focused on affordability and reliability for
ordinary ratepayers, and quick with a dry counterexample. She pushes back
hard on claims but keeps the tone warm.`
)

const analyzeSystem = `You are a research assistant for an energy-policy debate
podcast. Respond with JSON only, no prose around it.`

func analyzePrompt(title, content string) string {
	return fmt.Sprintf(`Analyze the following blog post for a debate podcast.

Title: %s

%s

Return a JSON object with exactly these keys, each an array of short strings:
"key_facts", "main_arguments", "stakeholders", "controversy_points",
"regulatory_hooks". Include only material grounded in the post.`, title, content)
}

func insightsPrompt(title string, analysisJSON string) string {
	return fmt.Sprintf(`Using this analysis of "%s":

%s

Expand it into debate-ready perspectives. Return a JSON object with these
keys, each an array of short strings: "utilities", "consumers", "startups",
"regulatory", "expert_questions". Each entry should be one concrete point a
debater could raise.`, title, analysisJSON)
}

func outlinePrompt(title string, minutes, humor int, focus []string, insightsJSON string) string {
	focusLine := "no specific focus areas"
	if len(focus) > 0 {
		focusLine = fmt.Sprintf("focus areas: %v", focus)
	}
	return fmt.Sprintf(`Outline a %d-minute two-host debate episode about "%s"
(humor level %d of 5, %s).

Perspectives to draw on:
%s

Produce a numbered outline: cold open, three to five debate beats with the
point of contention for each, and a closing where the hosts find partial
common ground. Plain text, no JSON.`, minutes, title, humor, focusLine, insightsJSON)
}

func scriptSystem() string {
	return fmt.Sprintf(`You write dialogue for an energy-policy debate podcast
with two hosts.

%s

%s

Format every line as "DOUG: ..." or "CLAIRE: ...". Stage directions go in
square brackets. Never invent a third speaker.`, dougProfile, claireProfile)
}

func scriptPrompt(title string, minutes, humor int, outline, previousSummary string) string {
	return fmt.Sprintf(`Write the full script for a %d-minute episode about "%s"
(humor level %d of 5). Follow this outline:

%s

Last episode recap, for a brief callback near the open: %s

Target roughly %d words of dialogue. Alternate speakers naturally; let
exchanges run two to four sentences each.`, minutes, title, humor, outline, previousSummary, minutes*150)
}

func summaryPrompt(scriptText string) string {
	return fmt.Sprintf(`Summarize this episode script in two or three sentences,
written so the hosts can reference it casually at the top of the next
episode. Mention the topic and who conceded what, if anyone did.

%s`, scriptText)
}
