package emotion

// SupportType labels the kind of support a tone calls for. It is carried for
// diagnostics only.
type SupportType string

const (
	CrisisIntervention    SupportType = "crisis_intervention"
	AnxietySupport        SupportType = "anxiety_support"
	DepressionSupport     SupportType = "depression_support"
	AngerManagement       SupportType = "anger_management"
	StressRelief          SupportType = "stress_relief"
	ClarityGuidance       SupportType = "clarity_guidance"
	PositiveReinforcement SupportType = "positive_reinforcement"
	GeneralSupport        SupportType = "general_support"
)

var supportTypes = map[Tone]SupportType{
	Crisis:    CrisisIntervention,
	Anxious:   AnxietySupport,
	Depressed: DepressionSupport,
	Angry:     AngerManagement,
	Stressed:  StressRelief,
	Confused:  ClarityGuidance,
	Positive:  PositiveReinforcement,
	Neutral:   GeneralSupport,
}

// SupportTypeFor returns the support label for a tone, general_support for unknown tones.
func SupportTypeFor(tone Tone) SupportType {
	if st, ok := supportTypes[tone]; ok {
		return st
	}
	return GeneralSupport
}
