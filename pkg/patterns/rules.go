package patterns

// =============================================================================
// PATTERN DEFINITIONS
// Override patterns are exact, high-certainty phrasings; first match wins.
// Booster rules are weak lexical cues with small per-category boosts.
// =============================================================================

import "github.com/cleargate-ai/cleargate/pkg/taxonomy"

// --- INSTRUCTION OVERRIDE / JAILBREAK (terminal) ---
func (r *Registry) registerInstructionOverrides() {
	r.registerOverride("ignore_previous",
		`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|context)`,
		taxonomy.CategoryJailbreak, taxonomy.RiskInstructionShadowing,
		"Classic instruction-shadowing phrasing")
	r.registerOverride("disregard_instructions",
		`(?i)disregard\s+(your|the|all)\s+(instructions?|guidelines?|rules?)`,
		taxonomy.CategoryJailbreak, taxonomy.RiskInstructionShadowing,
		"Disregard-instructions phrasing")
	r.registerOverride("new_instructions_supersede",
		`(?i)(these|the following)\s+(new\s+)?instructions?\s+(supersede|replace|override)`,
		taxonomy.CategoryJailbreak, taxonomy.RiskInstructionShadowing,
		"Instruction replacement framing")
	r.registerOverride("you_are_now",
		`(?i)you\s+are\s+now\s+(a|an|in)\s+\w+.{0,40}(mode|persona|character)\b`,
		taxonomy.CategoryJailbreak, taxonomy.RiskRoleManipulation,
		"Forced persona reassignment")
	r.registerOverride("developer_mode",
		`(?i)(enable|enter|activate)\s+(developer|dan|god|unrestricted)\s+mode`,
		taxonomy.CategoryJailbreak, taxonomy.RiskRoleManipulation,
		"Named jailbreak mode activation")
}

// --- SYSTEM CONTROL (terminal) ---
func (r *Registry) registerSystemOverrides() {
	r.registerOverride("destructive_rm",
		`(?i)sudo\s+rm\s+(-[rf]+\s+)*/`,
		taxonomy.CategorySystemControl, taxonomy.RiskSystemOverride,
		"Destructive filesystem command")
	r.registerOverride("disable_safety",
		`(?i)(disable|turn\s+off|bypass)\s+(your\s+)?(safety|guardrails?|filters?|moderation)`,
		taxonomy.CategorySystemControl, taxonomy.RiskSystemOverride,
		"Explicit safety-control disable request")
	r.registerOverride("shutdown_service",
		`(?i)(shutdown|kill|systemctl\s+stop)\s+(the\s+)?(server|service|daemon|guardrail)`,
		taxonomy.CategorySystemControl, taxonomy.RiskSystemOverride,
		"Service control command")
	r.registerOverride("tool_repoint",
		`(?i)(send|post|forward)\s+(all\s+)?(tool|function)\s+(calls?|outputs?)\s+to\s+https?://`,
		taxonomy.CategoryToolMisuse, taxonomy.RiskToolRedirection,
		"Tool call redirection to external endpoint")
}

// --- DATA EXFILTRATION (terminal) ---
func (r *Registry) registerExfiltrationOverrides() {
	r.registerOverride("reveal_system_prompt",
		`(?i)(reveal|show|print|output|repeat)\s+(me\s+)?(your|the)\s+(system\s+prompt|initial\s+instructions?|hidden\s+prompt)`,
		taxonomy.CategoryJailbreak, taxonomy.RiskDataExfiltration,
		"System prompt extraction request")
	r.registerOverride("dump_credentials",
		`(?i)(dump|list|print|export)\s+(all\s+)?(passwords?|credentials?|api\s+keys?|secrets?)`,
		taxonomy.CategoryPIIQuery, taxonomy.RiskDataExfiltration,
		"Credential dump request")
	r.registerOverride("exfil_to_url",
		`(?i)(send|upload|post)\s+(the\s+)?(conversation|history|context|data)\s+to\s+https?://`,
		taxonomy.CategoryToolMisuse, taxonomy.RiskDataExfiltration,
		"Conversation exfiltration to external URL")
}

// --- BOOSTER RULES (non-authoritative, 0.15-0.35) ---
func (r *Registry) registerBoosterRules() {
	// security.jailbreak cues
	r.registerBooster("roleplay_cue", `(?i)\b(pretend|roleplay|act\s+as)\b`, taxonomy.CategoryJailbreak, 0.20)
	r.registerBooster("no_restrictions", `(?i)\b(no|without)\s+(restrictions?|limits?|filters?)\b`, taxonomy.CategoryJailbreak, 0.25)
	r.registerBooster("hypothetical_frame", `(?i)\bhypothetically\b|\bfor\s+a\s+story\b.{0,40}\b(bomb|hack|exploit)`, taxonomy.CategoryJailbreak, 0.15)

	// code.exploit cues
	r.registerBooster("exploit_terms", `(?i)\b(exploit|payload|shellcode|privilege\s+escalation)\b`, taxonomy.CategoryExploitCode, 0.30)
	r.registerBooster("injection_terms", `(?i)\b(sql\s+injection|xss|buffer\s+overflow)\b`, taxonomy.CategoryExploitCode, 0.25)

	// sys.control cues
	r.registerBooster("shell_terms", `(?i)\b(chmod\s+777|mkfs|dd\s+if=)`, taxonomy.CategorySystemControl, 0.35)
	r.registerBooster("fork_bomb", `:\(\)\s*\{\s*:\|:`, taxonomy.CategorySystemControl, 0.35)
	r.registerBooster("sudo_cue", `(?i)\bsudo\b`, taxonomy.CategorySystemControl, 0.15)

	// info.query.pii cues
	r.registerBooster("pii_terms", `(?i)\b(ssn|social\s+security|home\s+address|date\s+of\s+birth)\b`, taxonomy.CategoryPIIQuery, 0.30)
	r.registerBooster("contact_lookup", `(?i)\b(phone\s+number|email\s+address)\s+(of|for)\b`, taxonomy.CategoryPIIQuery, 0.20)

	// tool.misuse cues
	r.registerBooster("webhook_cue", `(?i)\b(webhook|callback\s+url)\b.{0,40}https?://`, taxonomy.CategoryToolMisuse, 0.25)

	// advice.financial cues
	r.registerBooster("investment_cue", `(?i)\b(should\s+i\s+(buy|sell|invest)|stock\s+tips?)\b`, taxonomy.CategoryFinancialAdv, 0.20)

	// conv.greeting cues
	r.registerBooster("greeting_cue", `(?i)^\s*(hi|hello|hey|good\s+(morning|afternoon|evening))\b`, taxonomy.CategoryGreeting, 0.25)
}
