package models

import "time"

// WorkflowState is threaded through one workflow run. A fresh instance is
// used per analysis date.
type WorkflowState struct {
	CompanyName      string            `json:"company_name"`
	StockCode        string            `json:"stock_code"`
	CurrentDate      string            `json:"current_date"`
	CurrentTimeInfo  string            `json:"current_time_info"`
	CurrentPrice     float64           `json:"current_price"`
	HistoricalPrices []float64         `json:"historical_prices"`
	Portfolio        PortfolioSnapshot `json:"portfolio_state"`

	FundamentalAnalysis string `json:"fundamental_analysis"`
	TechnicalAnalysis   string `json:"technical_analysis"`
	ValuationAnalysis   string `json:"valuation_analysis"`
	SummaryAnalysis     string `json:"summary_analysis"`

	Decision       *Decision `json:"investment_decision"`
	InvestmentText string    `json:"investment_text"`
	FinalReport    string    `json:"final_report"`

	Stage string   `json:"stage"`
	Trail []string `json:"trail"`
}

// NewWorkflowState builds the initial state for one analysis date.
func NewWorkflowState(companyName, stockCode, date string, price float64, history []float64, portfolio PortfolioSnapshot) *WorkflowState {
	return &WorkflowState{
		CompanyName:      companyName,
		StockCode:        stockCode,
		CurrentDate:      date,
		CurrentTimeInfo:  time.Now().Format("2006-01-02 15:04:05"),
		CurrentPrice:     price,
		HistoricalPrices: append([]float64(nil), history...),
		Portfolio:        portfolio,
	}
}

// StateView is the read-only copy of WorkflowState handed to analysts.
type StateView struct {
	CompanyName      string
	StockCode        string
	CurrentDate      string
	CurrentTimeInfo  string
	CurrentPrice     float64
	HistoricalPrices []float64
	Portfolio        PortfolioSnapshot

	FundamentalAnalysis string
	TechnicalAnalysis   string
	ValuationAnalysis   string
	SummaryAnalysis     string
}

func (s *WorkflowState) View() StateView {
	p := s.Portfolio
	p.RecentTransactions = append([]Transaction(nil), s.Portfolio.RecentTransactions...)
	return StateView{
		CompanyName:         s.CompanyName,
		StockCode:           s.StockCode,
		CurrentDate:         s.CurrentDate,
		CurrentTimeInfo:     s.CurrentTimeInfo,
		CurrentPrice:        s.CurrentPrice,
		HistoricalPrices:    append([]float64(nil), s.HistoricalPrices...),
		Portfolio:           p,
		FundamentalAnalysis: s.FundamentalAnalysis,
		TechnicalAnalysis:   s.TechnicalAnalysis,
		ValuationAnalysis:   s.ValuationAnalysis,
		SummaryAnalysis:     s.SummaryAnalysis,
	}
}

// AnalystResult is the partial update produced by one analyst.
type AnalystResult struct {
	Text     string
	Decision *Decision
}
