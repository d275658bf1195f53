package consts

const (
	// 工作流节点
	Router           = "router"
	ParallelAnalysis = "parallel_analysis"
	Summary          = "summary"
	Investment       = "investment"
	Done             = "done"
)

const GraphName = "CortexQuant-Workflow"
