// Package rubric holds the static role rubric registry: for every supported
// interview role, the evaluation instruction naming its seven scoring
// criteria. The table is immutable and built once at init.
package rubric

// Rubric pairs a role with its evaluation instruction.
type Rubric struct {
	Code        string
	Role        string
	Instruction string
}

// FormatDirective is appended to every evaluation system prompt. It pins the
// output to the structure the feedback parser understands.
const FormatDirective = `
For each of the 7 factors above, provide ONLY:
- Positive Aspects (2-3 bullets, 1-2 lines each)
- Areas for Improvement (2-3 bullets, 1-2 lines each)
- Actionable Recommendations (2-3 bullets, 1-2 lines each)
- each header begins with #
- each sub-section begins with ###
- each bullet point begins with -

No intro or outro text. Be clinical, demanding and objective.
`

var registry = []Rubric{
	{
		Code:        "PM",
		Role:        "Product Manager",
		Instruction: "Evaluate based on: Structure and Clarity, Creativity and Innovation, Depth of Analysis, Market Understanding, Business and Strategy, Technical Feasibility, Personalization and Decision Making.",
	},
	{
		Code:        "TA",
		Role:        "Technical Architect",
		Instruction: "Evaluate based on: Logical Decomposition, System Scalability, Trade-off Analysis, Edge Case Resilience, Clean Code & Patterns, Technical Communication, and Security Mindset.",
	},
	{
		Code:        "SE",
		Role:        "Software Engineer",
		Instruction: "Evaluate based on: Algorithmic Efficiency, Code Readability, Testing & Validation, Problem-Solving Logic, Tool/Framework Mastery, Documentation Quality, and Version Control Best Practices.",
	},
	{
		Code:        "DS",
		Role:        "Data Scientist",
		Instruction: "Evaluate based on: Feature Engineering Logic, Model Selection Reasoning, Handling Bias & Overfitting, Statistical Significance, Deployment Feasibility, Data Intuition, and Evaluation Metrics Selection.",
	},
	{
		Code:        "HR",
		Role:        "Human Resources",
		Instruction: "Evaluate based on: Conflict Resolution, Cultural Alignment, Behavioral Consistency, Communication Style, Growth Mindset, Policy Awareness, and Team Collaboration Potential.",
	},
	{
		Code:        "GM",
		Role:        "Growth Marketer",
		Instruction: "Evaluate based on: Data Literacy, Hypothesis Generation, Channel Mastery, Experimentation Rigor, Creative Intuition, Cross-Functional Ops, and Budget Efficiency.",
	},
	{
		Code:        "CSL",
		Role:        "Customer Success Lead",
		Instruction: "Evaluate based on: De-escalation Skills, Proactive Strategy, Value Realization, Empathy & Active Listening, Relationship Building, Product Expertise, and Expansion Identification.",
	},
	{
		Code:        "VL",
		Role:        "Visionary Leader",
		Instruction: "Evaluate based on: Strategic Agility, Cultural Stewardship, Talent Development, Decision-Making Under Pressure, Influence & Persuasion, Operational Excellence, and Emotional Intelligence (EQ).",
	},
}

// ForRole returns the evaluation instruction for the role, matched by exact
// display name. An unknown role yields the empty string; downstream treats
// that as "no criteria", not an error.
func ForRole(role string) string {
	for _, r := range registry {
		if r.Role == role {
			return r.Instruction
		}
	}
	return ""
}

// Roles lists the supported role display names in registry order.
func Roles() []string {
	out := make([]string, len(registry))
	for i, r := range registry {
		out[i] = r.Role
	}
	return out
}
