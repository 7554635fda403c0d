package gesture

// BuiltinSign describes a sign recognized by the rule bank without any recording.
type BuiltinSign struct {
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Hands       int     `json:"hands"`
	Threshold   float64 `json:"threshold"`
	Priority    int     `json:"priority"`
}

var builtinDescriptions = map[string]struct {
	description string
	hands       int
}{
	LabelFever: {"Thumb and index pinched like a thermometer, other fingers upright", 1},
	LabelOK:    {"Thumb and index form a circle, other fingers extended", 1},
	LabelLove:  {"Both hands join thumbs and index fingers to draw a heart", 2},
	LabelPeace: {"Index and middle fingers raised in a V, others folded", 1},
}

// BuiltinSigns lists the rule-based signs of the default bank in priority order.
func BuiltinSigns() []BuiltinSign {
	rules := DefaultBank().Rules()
	signs := make([]BuiltinSign, 0, len(rules))
	for i, r := range rules {
		d := builtinDescriptions[r.Label()]
		signs = append(signs, BuiltinSign{
			Label:       r.Label(),
			Description: d.description,
			Hands:       d.hands,
			Threshold:   r.Threshold(),
			Priority:    i + 1,
		})
	}
	return signs
}
