// Package hunt exposes the built-in attack-path hunting flows as typed Go
// functions.
package hunt

import (
	"context"

	"github.com/tluyben/huntflow/flow"
)

// Built-in flow names.
const (
	FlowGenerateHuntQuery           = "generate-hunt-query"
	FlowDetectPrivilegeEscalation   = "detect-privilege-escalation"
	FlowDetectSuspiciousObservables = "detect-suspicious-observables"
	FlowSuggestGraphQueries         = "suggest-graph-queries"
	FlowSummarizeCriticalPaths      = "summarize-critical-paths"
)

type GenerateHuntQueryInput struct {
	Objective  string `json:"objective"`
	Domain     string `json:"domain,omitempty"`
	AttackType string `json:"attackType,omitempty"`
	HopLimit   *int   `json:"hopLimit,omitempty"`
}

type GenerateHuntQueryOutput struct {
	Query       string `json:"query"`
	Description string `json:"description"`
}

// GenerateHuntQuery produces a BloodHound-style query for an objective.
func GenerateHuntQuery(ctx context.Context, ex *flow.Executor, in GenerateHuntQueryInput) (GenerateHuntQueryOutput, error) {
	return flow.Invoke[GenerateHuntQueryInput, GenerateHuntQueryOutput](ctx, ex, FlowGenerateHuntQuery, in)
}

type DetectPrivilegeEscalationInput struct {
	UserPermissions      string `json:"userPermissions"`
	SystemConfigurations string `json:"systemConfigurations"`
}

type DetectPrivilegeEscalationOutput struct {
	EscalationDetected bool     `json:"escalationDetected"`
	Explanation        string   `json:"explanation"`
	Severity           string   `json:"severity"`
	AffectedEntities   []string `json:"affectedEntities"`
	Recommendations    []string `json:"recommendations"`
}

// DetectPrivilegeEscalation looks for escalation paths or misconfigurations.
func DetectPrivilegeEscalation(ctx context.Context, ex *flow.Executor, in DetectPrivilegeEscalationInput) (DetectPrivilegeEscalationOutput, error) {
	return flow.Invoke[DetectPrivilegeEscalationInput, DetectPrivilegeEscalationOutput](ctx, ex, FlowDetectPrivilegeEscalation, in)
}

type DetectSuspiciousObservablesInput struct {
	ObservableType  string `json:"observableType"`
	ObservableValue string `json:"observableValue"`
	SourceHost      string `json:"sourceHost"`
	CollectedAt     string `json:"collectedAt"`
	AgentID         string `json:"agentId"`
}

type DetectSuspiciousObservablesOutput struct {
	IsSuspicious bool   `json:"isSuspicious"`
	AITag        string `json:"aiTag"`
	Reasoning    string `json:"reasoning"`
}

// DetectSuspiciousObservables judges a single observable.
func DetectSuspiciousObservables(ctx context.Context, ex *flow.Executor, in DetectSuspiciousObservablesInput) (DetectSuspiciousObservablesOutput, error) {
	return flow.Invoke[DetectSuspiciousObservablesInput, DetectSuspiciousObservablesOutput](ctx, ex, FlowDetectSuspiciousObservables, in)
}

type SuggestGraphQueriesInput struct {
	EnvironmentDescription string   `json:"environmentDescription"`
	Observables            []string `json:"observables"`
}

type SuggestGraphQueriesOutput struct {
	Queries   []string `json:"queries"`
	Reasoning string   `json:"reasoning"`
}

// SuggestGraphQueries proposes graph queries for an environment. A nil
// Observables slice is sent as an empty list.
func SuggestGraphQueries(ctx context.Context, ex *flow.Executor, in SuggestGraphQueriesInput) (SuggestGraphQueriesOutput, error) {
	if in.Observables == nil {
		in.Observables = []string{}
	}
	return flow.Invoke[SuggestGraphQueriesInput, SuggestGraphQueriesOutput](ctx, ex, FlowSuggestGraphQueries, in)
}

type SummarizeCriticalPathsInput struct {
	AttackGraphData string `json:"attackGraphData"`
	TargetAssets    string `json:"targetAssets"`
}

type SummarizeCriticalPathsOutput struct {
	Summary string `json:"summary"`
}

// SummarizeCriticalPaths explains the most critical paths to the target
// assets in plain English.
func SummarizeCriticalPaths(ctx context.Context, ex *flow.Executor, in SummarizeCriticalPathsInput) (SummarizeCriticalPathsOutput, error) {
	return flow.Invoke[SummarizeCriticalPathsInput, SummarizeCriticalPathsOutput](ctx, ex, FlowSummarizeCriticalPaths, in)
}
