package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
)

// ValidateFile validates a journal NDJSON file and returns detailed results
func (v *Validator) ValidateFile(reader io.Reader) (*ValidationResult, error) {
	result := &ValidationResult{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339Nano),
		File:        v.filePath,
		Lines:       []LineResult{},
	}

	scanner := bufio.NewScanner(reader)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lineResult := v.validateLine(line, lineNumber)
		result.Lines = append(result.Lines, lineResult)

		result.Summary.Lines++
		switch worst(lineResult.Issues) {
		case IssueError:
			result.Summary.Error++
		case IssueWarn:
			result.Summary.Warn++
		default:
			result.Summary.OK++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return result, nil
}

func worst(issues []ValidationIssue) string {
	level := IssueOK
	for _, issue := range issues {
		switch issue.Type {
		case IssueError:
			return IssueError
		case IssueWarn:
			level = IssueWarn
		}
	}
	return level
}

// validateLine validates a single NDJSON line
func (v *Validator) validateLine(line string, lineNumber int) LineResult {
	result := LineResult{
		Line:   lineNumber,
		Issues: []ValidationIssue{},
	}

	var rawData map[string]interface{}
	if err := json.Unmarshal([]byte(line), &rawData); err != nil {
		result.add(IssueError, "", fmt.Sprintf("invalid JSON: %v", err))
		return result
	}

	for _, key := range RequiredKeys {
		if _, exists := rawData[key]; !exists {
			result.add(IssueError, key, fmt.Sprintf("missing required key: %s", key))
		}
	}
	for key := range rawData {
		if !knownKey(key) {
			result.add(IssueWarn, key, fmt.Sprintf("unknown key: %s", key))
		}
	}
	if len(result.Issues) > 0 && worst(result.Issues) == IssueError {
		return result
	}

	var rec repository.JournalRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		result.add(IssueError, "", fmt.Sprintf("type validation failed: %v", err))
		return result
	}

	v.validateID(rec.ID, lineNumber, &result)
	v.validateTimestamp(rec.Timestamp, &result)
	v.validateOperation(rec.Operation, &result)
	v.validateOutcome(&rec, &result)
	v.validateStage(rec.Stage, &result)
	v.validateElapsedMs(rec.ElapsedMs, &result)

	if rec.EngagementID < 0 {
		result.add(IssueError, "engagement_id", "engagement_id must be > 0")
	}
	if rec.OrderID < 0 {
		result.add(IssueError, "order_id", "order_id must be > 0")
	}

	return result
}

func (r *LineResult) add(kind, field, message string) {
	r.Issues = append(r.Issues, ValidationIssue{Type: kind, Field: field, Message: message})
}

func knownKey(key string) bool {
	for _, k := range RequiredKeys {
		if k == key {
			return true
		}
	}
	for _, k := range OptionalKeys {
		if k == key {
			return true
		}
	}
	return false
}

// validateID checks the ULID format and reports duplicates
func (v *Validator) validateID(id string, lineNumber int, result *LineResult) {
	if _, err := ulid.ParseStrict(id); err != nil {
		result.add(IssueError, "id", fmt.Sprintf("invalid ULID %q: %v", id, err))
		return
	}
	if first, dup := v.previousIDs[id]; dup {
		result.add(IssueWarn, "id", fmt.Sprintf("duplicate id, first seen on line %d", first))
		return
	}
	v.previousIDs[id] = lineNumber
}

// validateTimestamp validates the timestamp field and checks ordering
func (v *Validator) validateTimestamp(ts string, result *LineResult) {
	if ts == "" {
		result.add(IssueError, "timestamp", "timestamp cannot be empty")
		return
	}

	if !strings.HasSuffix(ts, "Z") {
		result.add(IssueError, "timestamp", "timestamp must be UTC (end with Z)")
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		result.add(IssueError, "timestamp", fmt.Sprintf("invalid RFC3339Nano format: %v", err))
		return
	}

	if v.previousTS != "" {
		if prev, err := time.Parse(time.RFC3339Nano, v.previousTS); err == nil && parsed.Before(prev) {
			result.add(IssueWarn, "timestamp",
				fmt.Sprintf("timestamp went backwards from %s to %s", v.previousTS, ts))
		}
	}
	v.previousTS = ts
}

func (v *Validator) validateOperation(op string, result *LineResult) {
	if !ValidOperations[op] {
		result.add(IssueError, "operation",
			fmt.Sprintf("invalid operation value: %s (must be login|logout|start|advance|next|finalize)", op))
	}
}

// validateOutcome checks the outcome and its consistency with the error fields
func (v *Validator) validateOutcome(rec *repository.JournalRecord, result *LineResult) {
	if !ValidOutcomes[rec.Outcome] {
		result.add(IssueError, "outcome",
			fmt.Sprintf("invalid outcome value: %s (must be ok|error|rejected)", rec.Outcome))
		return
	}

	switch rec.Outcome {
	case repository.OutcomeOK:
		if rec.Error != "" || rec.ErrorKind != "" {
			result.add(IssueWarn, "error", "outcome ok carries an error")
		}
	default:
		if rec.Error == "" {
			result.add(IssueWarn, "error", fmt.Sprintf("outcome %s without an error message", rec.Outcome))
		}
	}
}

func (v *Validator) validateStage(stage string, result *LineResult) {
	if stage == "" {
		return
	}
	if !model.Stage(stage).IsValid() {
		result.add(IssueError, "stage", fmt.Sprintf("invalid stage value: %s", stage))
	}
}

func (v *Validator) validateElapsedMs(elapsed int64, result *LineResult) {
	if elapsed < 0 {
		result.add(IssueError, "elapsed_ms", "elapsed_ms must be >= 0")
	}
}
