package catalog

// Layer names used by the built-in catalog.
const (
	LayerDelivery   = "Delivery"
	LayerWaysOfWork = "Ways of working"
	LayerOwnership  = "Ownership & culture"
)

// Default returns the built-in product-design evaluation catalog.
func Default() *Catalog {
	return MustNew(defaultCriteria())
}

func defaultCriteria() []Criterion {
	return []Criterion{
		{
			ID:          "deliverables_quality",
			Layer:       LayerDelivery,
			Name:        "Quality of deliverables",
			Description: "Clear solutions at the right level of detail, consistent with guidelines, with explicit reasoning.",
			Examples: []string{
				"Flows, screens and edge states are covered without later rework.",
				"Documents decisions and specifies clearly (copy, rules, edge cases).",
			},
			Anchors: []string{
				"1: Incomplete or wrong deliverables that cause rework.",
				"2: Covers the basics with frequent gaps; little clarity.",
				"3: Expected: complete and understandable; follows guidelines.",
				"4: Anticipates edge cases and documents decisions; solid consistency.",
				"5: Team reference; raises standards and speeds others up.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 1.2, TierMid: 1.4, TierSenior: 1.5},
			DefaultWeight:      1.4,
		},
		{
			ID:          "delivery_ownership",
			Layer:       LayerDelivery,
			Name:        "Delivery commitment and ownership",
			Description: "Meets timelines without chasing, anticipates blockers, follows up and closes loops.",
			Examples: []string{
				"Gets ahead of risks and renegotiates with stakeholders in time.",
				"Closes loops: communicates progress and changes without being chased.",
			},
			Anchors: []string{
				"1: Needs constant follow-up; does not close commitments.",
				"2: Delivers only when pushed; little anticipation.",
				"3: Delivers on time and communicates basic changes.",
				"4: Anticipates risks and renegotiates; reduces surprises for the team.",
				"5: Ownership role model; others coordinate around their cadence.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 1.0, TierMid: 1.2, TierSenior: 1.4},
			DefaultWeight:      1.2,
		},
		{
			ID:          "communication_participation",
			Layer:       LayerWaysOfWork,
			Name:        "Communication and participation",
			Description: "Takes part in meetings, explains decisions, listens and builds on others.",
			Examples: []string{
				"Comes prepared to rituals and explains decisions with context.",
				"Listens and synthesises; asks questions that unblock.",
			},
			Anchors: []string{
				"1: Does not participate or disrupts; confuses the team.",
				"2: Reactive communication; lacks clarity and structure.",
				"3: Clear communication; participates and listens.",
				"4: Facilitates discussions, synthesises and surfaces risks.",
				"5: Facilitates complex sessions and lifts the group's communication.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 1.0, TierMid: 1.2, TierSenior: 1.3},
			DefaultWeight:      1.1,
		},
		{
			ID:          "collaboration_team_attitude",
			Layer:       LayerWaysOfWork,
			Name:        "Collaboration and team attitude",
			Description: "Genuine willingness to help, attitude towards extra requests, verbal and non-verbal language.",
			Examples: []string{
				"Offers support during load peaks and pair design.",
				"Keeps a constructive attitude in disagreements.",
			},
			Anchors: []string{
				"1: Negative or blocking attitude; drains the team.",
				"2: Helps only when insisted upon; uncollaborative language.",
				"3: Collaborates when asked; respectful manner.",
				"4: Steps in to help early; minds tone and climate.",
				"5: Catalyses collaboration; creates safe and productive spaces.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 1.0, TierMid: 1.1, TierSenior: 1.2},
			DefaultWeight:      1.0,
		},
		{
			ID:          "proactivity_initiative",
			Layer:       LayerOwnership,
			Name:        "Proactivity and initiative",
			Description: "Proposes improvements, spots problems early, suggests alternative paths.",
			Examples: []string{
				"Identifies problems unprompted and lays out options.",
				"Brings data, comparisons or quick prototypes to validate.",
			},
			Anchors: []string{
				"1: Does not propose; waits for instructions even on obvious problems.",
				"2: Occasional, shallow proposals; little action.",
				"3: Suggests improvements with basic support and executes them.",
				"4: Anticipates problems, prioritises and moves resources to solve them.",
				"5: Raises the team's bar; creates reusable playbooks and frameworks.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 1.0, TierMid: 1.3, TierSenior: 1.6},
			DefaultWeight:      1.3,
		},
		{
			ID:          "product_domain_context",
			Layer:       LayerDelivery,
			Name:        "Product domain and context",
			Description: "Understands the product and business/technology constraints; uses real data and feedback.",
			Examples: []string{
				"Decisions grounded in metrics, real feedback or technical constraints.",
				"Knows the end-to-end flow and its trade-offs.",
			},
			Anchors: []string{
				"1: Designs disconnected from business and tech; ignores data.",
				"2: Considers context only after feedback; mistakes from lack of knowledge.",
				"3: Uses key inputs and avoids clashing with constraints.",
				"4: Integrates data and tech early; optimises trade-offs.",
				"5: Domain reference; guides strategic decisions.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 1.1, TierMid: 1.3, TierSenior: 1.4},
			DefaultWeight:      1.2,
		},
		{
			ID:          "feedback_adaptability",
			Layer:       LayerWaysOfWork,
			Name:        "Attitude to feedback and change",
			Description: "Receives feedback without defensiveness, iterates willingly, learns from corrections.",
			Examples: []string{
				"Asks for feedback early and incorporates it quickly.",
				"Explains what changed and what was learned after iterations.",
			},
			Anchors: []string{
				"1: Rejects feedback; does not correct or corrects late.",
				"2: Accepts grudgingly; iterates minimally and slowly.",
				"3: Receives feedback and adjusts willingly.",
				"4: Seeks feedback proactively, iterates fast and communicates changes.",
				"5: Raises the feedback culture; creates mechanisms and coaches.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 1.0, TierMid: 1.2, TierSenior: 1.3},
			DefaultWeight:      1.1,
		},
		{
			ID:          "cultural_impact_projection",
			Layer:       LayerOwnership,
			Name:        "Cultural impact (projection)",
			Description: "Energy brought to the team; whether they add or drain, reinforce or weaken culture.",
			Examples: []string{
				"Takes part in team rituals and looks after the climate.",
				"Models behaviour: shares learnings, celebrates wins.",
			},
			Anchors: []string{
				"1: Visible negative impact; drains morale or breaks agreements.",
				"2: Neutral with negative bias; does not look after the climate.",
				"3: Adds to the climate; respects agreements and norms.",
				"4: Actively reinforces culture; spreads good practices.",
				"5: Cultural reference; creates lasting mechanisms.",
			},
			RecommendedWeights: map[Tier]float64{TierJunior: 0.8, TierMid: 1.2, TierSenior: 1.5},
			DefaultWeight:      1.2,
		},
	}
}
