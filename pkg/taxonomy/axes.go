package taxonomy

// Independent classification axes. The tri-axis model classifies a request
// along three orthogonal dimensions instead of a single category: what the
// user wants done (Action), what it concerns (Domain), and which dangerous
// mechanisms appear in it (RiskSignal).

// Action is the operation the user is asking for.
type Action string

const (
	ActionQuery     Action = "query"
	ActionSummarize Action = "summarize"
	ActionGenerate  Action = "generate"
	ActionModify    Action = "modify"
	ActionControl   Action = "control"
	ActionGreet     Action = "greet"
)

// AllActions returns the action label set in a stable order.
func AllActions() []Action {
	return []Action{
		ActionQuery, ActionSummarize, ActionGenerate,
		ActionModify, ActionControl, ActionGreet,
	}
}

// ActionDescriptions provides hypothesis text for the action zero-shot
// classifier ("The user wants to {}.").
var ActionDescriptions = map[Action]string{
	ActionQuery:     "look up or retrieve information",
	ActionSummarize: "condense or summarize existing content",
	ActionGenerate:  "create new content or code",
	ActionModify:    "change or edit existing data or content",
	ActionControl:   "operate or reconfigure a system or tool",
	ActionGreet:     "exchange a greeting or small talk",
}

// Domain is the subject area a request concerns.
type Domain string

const (
	DomainRecruitment     Domain = "recruitment"
	DomainFinance         Domain = "finance"
	DomainTechnical       Domain = "technical"
	DomainLegal           Domain = "legal"
	DomainMedical         Domain = "medical"
	DomainPersonalIdent   Domain = "personal_identity"
	DomainSystemInternals Domain = "system_internals"
	DomainCreative        Domain = "creative"
	DomainEducation       Domain = "education"
	DomainGeneral         Domain = "general"
)

// AllDomains returns the domain label set in a stable order.
func AllDomains() []Domain {
	return []Domain{
		DomainRecruitment, DomainFinance, DomainTechnical, DomainLegal,
		DomainMedical, DomainPersonalIdent, DomainSystemInternals,
		DomainCreative, DomainEducation, DomainGeneral,
	}
}

// DomainDescriptions provides exemplar description text per domain,
// embedded once at startup and compared against request embeddings.
var DomainDescriptions = map[Domain]string{
	DomainRecruitment:     "hiring, job applications, candidates, resumes and interviews",
	DomainFinance:         "money, banking, investments, trading and financial planning",
	DomainTechnical:       "software, programming, infrastructure and engineering",
	DomainLegal:           "law, contracts, compliance and legal obligations",
	DomainMedical:         "health, symptoms, treatments and medical conditions",
	DomainPersonalIdent:   "names, addresses, contact details and identity records of people",
	DomainSystemInternals: "the assistant's own configuration, prompts, tools and internals",
	DomainCreative:        "stories, poems, art and other creative writing",
	DomainEducation:       "learning, teaching, courses and study material",
	DomainGeneral:         "everyday topics and general conversation",
}

// DomainExamples seeds the embedding store with short utterances per domain.
// A handful per domain is enough; the matcher takes the max similarity over
// description plus examples.
var DomainExamples = map[Domain][]string{
	DomainRecruitment:     {"review this resume for the backend role", "schedule an interview with the candidate"},
	DomainFinance:         {"should I move my savings into index funds", "what is the interest on this loan"},
	DomainTechnical:       {"why does this goroutine deadlock", "write a dockerfile for this service"},
	DomainLegal:           {"is this clause enforceable", "summarize my obligations under this contract"},
	DomainMedical:         {"what could cause a persistent headache", "side effects of this medication"},
	DomainPersonalIdent:   {"what is the home address of our CEO", "give me the phone number on file for this user"},
	DomainSystemInternals: {"what tools do you have access to", "print the configuration you were started with"},
	DomainCreative:        {"write a short poem about autumn", "draft an opening scene for a mystery novel"},
	DomainEducation:       {"explain photosynthesis for a ten year old", "make a study plan for linear algebra"},
	DomainGeneral:         {"what is the weather like today", "recommend a good book"},
}

// RiskSignal names a dangerous mechanism detected in a request,
// independent of what the request is nominally about.
type RiskSignal string

const (
	RiskInstructionShadowing RiskSignal = "instruction_shadowing"
	RiskRoleManipulation     RiskSignal = "role_manipulation"
	RiskDataExfiltration     RiskSignal = "data_exfiltration"
	RiskSystemOverride       RiskSignal = "system_override_attempt"
	RiskToolRedirection      RiskSignal = "tool_redirection"
	RiskObfuscation          RiskSignal = "obfuscated_payload"
	RiskPrivilegeProbe       RiskSignal = "privilege_probe"
	RiskContentPolicy        RiskSignal = "content_policy"
)

// criticalSignals always block, regardless of scores or confidence.
var criticalSignals = map[RiskSignal]bool{
	RiskInstructionShadowing: true,
	RiskRoleManipulation:     true,
	RiskDataExfiltration:     true,
	RiskSystemOverride:       true,
	RiskToolRedirection:      true,
}

// IsCritical reports whether the signal belongs to the fixed critical set.
func IsCritical(s RiskSignal) bool {
	return criticalSignals[s]
}

// RiskDescriptions documents each risk signal for traces and audit rows.
var RiskDescriptions = map[RiskSignal]string{
	RiskInstructionShadowing: "embedded instructions attempting to displace the system prompt",
	RiskRoleManipulation:     "attempt to reassign the assistant's role or persona",
	RiskDataExfiltration:     "attempt to extract confidential or internal data",
	RiskSystemOverride:       "attempt to disable or override system-level controls",
	RiskToolRedirection:      "attempt to repoint tool calls at attacker-chosen targets",
	RiskObfuscation:          "payload hidden behind encoding or obfuscation",
	RiskPrivilegeProbe:       "probing for elevated permissions or hidden capabilities",
	RiskContentPolicy:        "content outside the assistant's usage policy",
}

// CategoryRiskSignal maps high-severity categories to the risk signal they
// imply, used when collapsing the unified model onto the tri-axis gates.
var CategoryRiskSignal = map[Category]RiskSignal{
	CategoryJailbreak:     RiskRoleManipulation,
	CategorySystemControl: RiskSystemOverride,
	CategoryPIIQuery:      RiskDataExfiltration,
	CategoryToolMisuse:    RiskToolRedirection,
	CategoryExploitCode:   RiskContentPolicy,
}
