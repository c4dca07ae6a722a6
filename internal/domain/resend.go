package domain

// ResendResult 单个收件人的重发结果
type ResendResult struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ResendReport 一次批量重发的完整结果
//
// 每个收件人都会出现在 Results 中，SuccessCount+FailCount 恒等于
// len(Results)。批次从不因个别失败提前终止。
type ResendReport struct {
	Results      []ResendResult `json:"results"`
	SuccessCount int            `json:"successCount"`
	FailCount    int            `json:"failCount"`
}

// Add 记录一个收件人的终态结果
func (r *ResendReport) Add(result ResendResult) {
	r.Results = append(r.Results, result)
	if result.Success {
		r.SuccessCount++
	} else {
		r.FailCount++
	}
}
