package consts

const (
	// Analyst Team
	Agent_FundamentalAnalyst = "Fundamental Analyst"
	Agent_TechnicalAnalyst   = "Technical Analyst"
	Agent_ValuationAnalyst   = "Valuation Analyst"
	// Synthesis
	Agent_SummaryAnalyst    = "Summary Analyst"
	Agent_InvestmentAdvisor = "Investment Advisor"
)

const (
	State_Pending    = "pending"
	State_InProgress = "in_progress"
	State_Completed  = "completed"
	State_Failed     = "failed"
)
