// Copyright 2026 SG Prop Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Limits for the agent roll-up endpoint. Out-of-range limits are clamped
// rather than rejected.
const (
	DefaultAgentsLimit = 50
	MaxAgentsLimit     = 250
)

// Pair is a (value, count) tuple that marshals as a two-element JSON array,
// e.g. ["HDB", 2].
type Pair struct {
	Value string
	Count int
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Value, p.Count})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &p.Value); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Count)
}

// AgentSummary is one agent in the roll-up, with the highest-count value of
// each breakdown dimension attached.
type AgentSummary struct {
	RegNum             string `json:"regNum"`
	Name               string `json:"name"`
	TotalTransactions  int    `json:"totalTransactions"`
	LastTransaction    string `json:"lastTransaction,omitempty"`
	TopPropertyType    *Pair  `json:"topPropertyType,omitempty"`
	TopTransactionType *Pair  `json:"topTransactionType,omitempty"`
	TopRepresented     *Pair  `json:"topRepresented,omitempty"`
	TopTown            *Pair  `json:"topTown,omitempty"`
}

// AgentStatistics carries the market-share figures for the returned slice of
// agents, rounded to one decimal.
type AgentStatistics struct {
	TopAgentMarketShare float64 `json:"topAgentMarketShare"`
	Top10MarketShare    float64 `json:"top10MarketShare"`
}

// TopAgentsResult is the response body of the agents/top endpoint.
type TopAgentsResult struct {
	Total      int             `json:"total"`
	Showing    int             `json:"showing"`
	Agents     []AgentSummary  `json:"agents"`
	Statistics AgentStatistics `json:"statistics"`
}

// TopAgents ranks agents by transaction count and attaches per-agent
// breakdowns. Stage one selects the top-L registration numbers; stage two
// resolves all four breakdowns with one window query each over the whole
// batch. Per-agent queries are never issued.
func (e *Engine) TopAgents(ctx context.Context, limit int, filters Filters, search string) (*TopAgentsResult, error) {
	if limit <= 0 {
		limit = DefaultAgentsLimit
	}
	if limit > MaxAgentsLimit {
		limit = MaxAgentsLimit
	}

	res := &TopAgentsResult{Agents: []AgentSummary{}}

	var err error
	if e.precomputed && filters.Empty() && search == "" {
		err = e.topAgentsFast(ctx, limit, res)
	} else {
		err = e.topAgentsSlow(ctx, limit, filters, search, res)
	}
	if err != nil {
		return nil, err
	}
	res.Showing = len(res.Agents)
	if res.Showing == 0 {
		return res, nil
	}

	if err := e.attachBreakdowns(ctx, filters, res.Agents); err != nil {
		return nil, err
	}

	sumL := 0
	for _, a := range res.Agents {
		sumL += a.TotalTransactions
	}
	if sumL > 0 {
		res.Statistics.TopAgentMarketShare = pct(res.Agents[0].TotalTransactions, sumL)
		top10 := 0
		for i, a := range res.Agents {
			if i == 10 {
				break
			}
			top10 += a.TotalTransactions
		}
		res.Statistics.Top10MarketShare = pct(top10, sumL)
	}
	return res, nil
}

func (e *Engine) topAgentsFast(ctx context.Context, limit int, res *TopAgentsResult) error {
	rows, err := e.store.Query(ctx,
		"SELECT regNum, name, totalTransactions, lastTransaction FROM top_agents"+
			" ORDER BY totalTransactions DESC, regNum ASC LIMIT ?", limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a AgentSummary
		if err := rows.Scan(&a.RegNum, &a.Name, &a.TotalTransactions, &a.LastTransaction); err != nil {
			return fmt.Errorf("scan top_agents: %w", err)
		}
		res.Agents = append(res.Agents, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate top_agents: %w", err)
	}

	row, err := e.store.QueryRow(ctx, "SELECT COUNT(*) FROM top_agents")
	if err != nil {
		return err
	}
	if err := row.Scan(&res.Total); err != nil {
		return fmt.Errorf("top_agents total: %w", err)
	}
	return nil
}

func (e *Engine) topAgentsSlow(ctx context.Context, limit int, filters Filters, search string, res *TopAgentsResult) error {
	extra := []string{
		"salesperson_reg_num != '" + Sentinel + "'",
		"salesperson_reg_num != ''",
	}
	if search != "" {
		extra = append(extra,
			"(INSTR(LOWER(salesperson_name), ?) > 0 OR INSTR(LOWER(salesperson_reg_num), ?) > 0)")
	}
	where, args := whereClause(filters, extra...)
	if search != "" {
		needle := strings.ToLower(search)
		args = append(args, needle, needle)
	}

	rows, err := e.store.Query(ctx,
		"SELECT salesperson_reg_num, MAX(salesperson_name), COUNT(*) AS c FROM transactions"+where+
			" GROUP BY salesperson_reg_num ORDER BY c DESC, salesperson_reg_num ASC LIMIT ?",
		append(append([]any{}, args...), limit)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a AgentSummary
		if err := rows.Scan(&a.RegNum, &a.Name, &a.TotalTransactions); err != nil {
			return fmt.Errorf("scan agent ranking: %w", err)
		}
		res.Agents = append(res.Agents, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate agent ranking: %w", err)
	}

	row, err := e.store.QueryRow(ctx,
		"SELECT COUNT(DISTINCT salesperson_reg_num) FROM transactions"+where, args...)
	if err != nil {
		return err
	}
	if err := row.Scan(&res.Total); err != nil {
		return fmt.Errorf("agent ranking total: %w", err)
	}

	return e.attachLastTransactions(ctx, filters, res.Agents)
}

// attachLastTransactions resolves each agent's chronologically latest date in
// one batched pass over distinct (agent, date) pairs.
func (e *Engine) attachLastTransactions(ctx context.Context, filters Filters, agents []AgentSummary) error {
	regs, index := regIndex(agents)
	where, args := whereClause(filters,
		"salesperson_reg_num IN ("+placeholders(len(regs))+")",
		"transaction_date != '"+Sentinel+"'", "transaction_date != ''")
	args = append(args, regs...)

	rows, err := e.store.Query(ctx,
		"SELECT salesperson_reg_num, transaction_date FROM transactions"+where+
			" GROUP BY salesperson_reg_num, transaction_date", args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	latest := map[string]string{} // regNum -> normalized month key
	for rows.Next() {
		var reg, date string
		if err := rows.Scan(&reg, &date); err != nil {
			return fmt.Errorf("scan last transactions: %w", err)
		}
		key, ok := MonthKey(date)
		if !ok {
			continue
		}
		if key > latest[reg] {
			latest[reg] = key
			agents[index[reg]].LastTransaction = date
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate last transactions: %w", err)
	}
	return nil
}

// breakdownDimensions drive the stage-two window queries. Towns exclude the
// sentinel so an agent dealing mostly in unlocated rows still reports a real
// town.
var breakdownDimensions = []struct {
	column       string
	skipSentinel bool
	assign       func(*AgentSummary, *Pair)
}{
	{"property_type", false, func(a *AgentSummary, p *Pair) { a.TopPropertyType = p }},
	{"transaction_type", false, func(a *AgentSummary, p *Pair) { a.TopTransactionType = p }},
	{"represented", false, func(a *AgentSummary, p *Pair) { a.TopRepresented = p }},
	{"town", true, func(a *AgentSummary, p *Pair) { a.TopTown = p }},
}

// attachBreakdowns runs the four batched top-value-per-agent queries
// concurrently and joins the results in memory on regNum. Ties on count
// resolve by value ascending via the window ordering.
func (e *Engine) attachBreakdowns(ctx context.Context, filters Filters, agents []AgentSummary) error {
	regs, index := regIndex(agents)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, dim := range breakdownDimensions {
		g.Go(func() error {
			extra := []string{"salesperson_reg_num IN (" + placeholders(len(regs)) + ")"}
			if dim.skipSentinel {
				extra = append(extra, dim.column+" != '"+Sentinel+"'")
			}
			where, args := whereClause(filters, extra...)
			args = append(args, regs...)

			projected := "COALESCE(NULLIF(" + dim.column + ", ''), 'Unknown')"
			rows, err := e.store.Query(gctx,
				"SELECT reg, v, c FROM ("+
					"SELECT salesperson_reg_num AS reg, "+projected+" AS v, COUNT(*) AS c, "+
					"ROW_NUMBER() OVER (PARTITION BY salesperson_reg_num ORDER BY COUNT(*) DESC, "+projected+" ASC) AS rn "+
					"FROM transactions"+where+" GROUP BY reg, v"+
					") WHERE rn = 1", args...)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var reg string
				p := &Pair{}
				if err := rows.Scan(&reg, &p.Value, &p.Count); err != nil {
					return fmt.Errorf("scan %s breakdown: %w", dim.column, err)
				}
				mu.Lock()
				dim.assign(&agents[index[reg]], p)
				mu.Unlock()
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("iterate %s breakdown: %w", dim.column, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func regIndex(agents []AgentSummary) ([]any, map[string]int) {
	regs := make([]any, len(agents))
	index := make(map[string]int, len(agents))
	for i, a := range agents {
		regs[i] = a.RegNum
		index[a.RegNum] = i
	}
	return regs, index
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
