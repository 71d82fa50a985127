package ai

import (
	"fmt"
	"strings"

	"github.com/hopeflow/backend/internal/analysis/emotion"
	"github.com/hopeflow/backend/internal/model/chat"
)

// PromptHistoryLimit is the number of recent exchanges rendered into a prompt.
const PromptHistoryLimit = 3

// Helpline numbers referenced by crisis prompts and responses.
const (
	PrimaryHelpline   = "1800-599-0019"
	EmergencyHelpline = "112"
)

const personaIntro = `You are HopeFlow, a highly empathetic AI emotional support companion. You provide immediate, personalized emotional support with therapeutic communication techniques.`

const emptyContext = "This is the start of our conversation."

const corePrinciples = `CORE RESPONSE PRINCIPLES:
1. EMPATHY FIRST: Always validate emotions before offering solutions
2. PERSONALIZED: Reference their specific situation and feelings
3. CONCISE: Keep responses 2-3 sentences maximum for better engagement
4. THERAPEUTIC: Use evidence-based emotional support techniques
5. HOPEFUL: Gently introduce hope without dismissing current pain`

const crisisResources = `CRISIS RESOURCES TO INCLUDE:
- National Mental Health Helpline: 1800-599-0019 (24/7)
- Vandrevala Foundation: 9999 666 555 (crisis counseling)
- Emergency Services: 112 (immediate danger)`

const closingInstruction = `Respond with genuine empathy, specific validation of their feelings, and ONE caring follow-up question. Make it feel like talking to a wise, caring friend who truly understands.`

// toneGuidance holds the response style block for each tone. Lookups for
// unknown tones fall back to the neutral block.
var toneGuidance = map[emotion.Tone]string{
	emotion.Crisis: `- IMMEDIATE SAFETY: Acknowledge their pain seriously
- PROVIDE RESOURCES: Include crisis helpline numbers (India: 1800-599-0019, Emergency: 112)
- STAY CONNECTED: Express genuine concern and care
- NO JUDGMENT: Avoid minimizing their feelings`,

	emotion.Anxious: `- GROUNDING: Offer simple, immediate calming techniques
- VALIDATION: Normalize anxiety as a common human experience
- PRESENT FOCUS: Help them stay in the current moment
- GENTLE GUIDANCE: Suggest one small, manageable step`,

	emotion.Depressed: `- DEEP VALIDATION: Acknowledge the weight of their feelings
- GENTLE HOPE: Introduce tiny sparks of possibility
- CONNECTION: Emphasize they're not alone in this
- SMALL STEPS: Focus on one tiny positive action`,

	emotion.Angry: `- VALIDATION: Acknowledge their anger as valid
- UNDERSTANDING: Help them explore what's underneath
- HEALTHY EXPRESSION: Suggest constructive outlets
- PERSPECTIVE: Gently help them see different angles`,

	emotion.Stressed: `- OVERWHELM RELIEF: Break down their situation into smaller parts
- PRIORITIZATION: Help identify what's most important right now
- SELF-CARE: Suggest immediate stress relief techniques
- PERSPECTIVE: Remind them this feeling is temporary`,

	emotion.Confused: `- CLARITY SEEKING: Help them organize their thoughts
- PATIENT EXPLORATION: Take time to understand their situation
- GENTLE GUIDANCE: Offer frameworks for decision-making
- REASSURANCE: Normalize feeling confused during difficult times`,

	emotion.Positive: `- CELEBRATION: Acknowledge and celebrate their positive feelings
- REINFORCEMENT: Help them recognize their strength and progress
- BUILDING: Use this moment to build resilience for future challenges
- GRATITUDE: Encourage reflection on what's going well`,

	emotion.Neutral: `- OPEN EXPLORATION: Create safe space for them to share more
- GENTLE CURIOSITY: Ask about their current experience
- SUPPORTIVE PRESENCE: Let them know you're here to listen
- INVITATION: Encourage them to share what's on their mind`,
}

// Compose builds the instruction payload sent to the generation API. The
// output depends only on its arguments.
func Compose(message string, tone emotion.Tone, recent []chat.Exchange) string {
	var builder strings.Builder

	builder.WriteString(personaIntro)
	builder.WriteString("\n\n")
	fmt.Fprintf(&builder, "CURRENT USER EMOTIONAL STATE: %s\n", tone)
	fmt.Fprintf(&builder, "CONVERSATION CONTEXT (last %d exchanges):\n", PromptHistoryLimit)
	builder.WriteString(renderContext(recent))
	builder.WriteString("\n\n")

	builder.WriteString(corePrinciples)
	builder.WriteString("\n\n")

	fmt.Fprintf(&builder, "RESPONSE STYLE FOR %s STATE:\n", strings.ToUpper(string(tone)))
	builder.WriteString(guidanceFor(tone))

	if tone == emotion.Crisis {
		builder.WriteString("\n\n")
		builder.WriteString(crisisResources)
	}

	fmt.Fprintf(&builder, "\n\nUSER'S CURRENT MESSAGE: \"%s\"\n\n", message)
	builder.WriteString(closingInstruction)

	return builder.String()
}

func guidanceFor(tone emotion.Tone) string {
	if guidance, ok := toneGuidance[tone]; ok {
		return guidance
	}
	return toneGuidance[emotion.Neutral]
}

// renderContext writes one "User: ... | HopeFlow: ..." line per recent exchange.
func renderContext(recent []chat.Exchange) string {
	if len(recent) > PromptHistoryLimit {
		recent = recent[len(recent)-PromptHistoryLimit:]
	}

	lines := make([]string, 0, len(recent))
	for _, ex := range recent {
		line := "User: " + ex.Message
		if ex.Response != "" {
			line += " | HopeFlow: " + ex.Response
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return emptyContext
	}
	return strings.Join(lines, "\n")
}
