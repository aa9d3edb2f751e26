package probe

import "fmt"

// verify checks the report for inconsistencies between what was started and
// what the host says it recorded.
func verify(report *Report) []string {
	var problems []string

	if report.SessionsStarted == 0 {
		problems = append(problems, "no session could be started")
	}
	if report.SessionsFailed > 0 {
		problems = append(problems, fmt.Sprintf("%d sessions failed to start", report.SessionsFailed))
	}
	if !report.Host.Started {
		problems = append(problems, "host reports it is not started")
	}
	if report.Host.BudgetLimit > 0 && report.Host.BudgetUsed > report.Host.BudgetLimit {
		problems = append(problems, fmt.Sprintf("budget used %d exceeds limit %d", report.Host.BudgetUsed, report.Host.BudgetLimit))
	}

	for _, r := range report.Results {
		if !r.Started {
			continue
		}
		problems = append(problems, verifyTally(r)...)
	}
	return problems
}

// verifyTally checks that only tracked players were credited and that each
// total matches its kinds.
func verifyTally(r Result) []string {
	var problems []string

	tracked := make(map[string]struct{}, len(r.Plan.Players))
	for _, p := range r.Plan.Players {
		tracked[p.ID] = struct{}{}
	}

	for _, t := range r.Tally {
		if _, ok := tracked[t.Player.ID]; !ok {
			problems = append(problems, fmt.Sprintf("session %s credited untracked player %s", r.Plan.SessionID, t.Player.ID))
		}
		sum := 0
		for _, n := range t.Kinds {
			sum += n
		}
		if sum != t.Total {
			problems = append(problems, fmt.Sprintf("session %s player %s total %d != sum of kinds %d", r.Plan.SessionID, t.Player.ID, t.Total, sum))
		}
	}
	return problems
}
