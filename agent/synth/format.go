package synth

import (
	"fmt"
	"strings"

	contractx "github.com/harborins/concierge/agent/contract"
)

// formatFact renders one aggregated value as plain text. Payload shapes
// come off the wire, so every accessor tolerates missing or oddly typed
// fields; formatting never fails.
func formatFact(category contractx.FactCategory, value any) string {
	switch category {
	case contractx.FactPolicyList:
		return formatRows(value, func(row map[string]any) string {
			line := fmt.Sprintf("- %s (%s, %s)", field(row, "policy_number"), field(row, "policy_type"), field(row, "status"))
			if premium, ok := money(row["premium"]); ok {
				line += ", premium " + premium
			}
			return line
		})
	case contractx.FactCoverageLimits:
		return formatRows(value, func(row map[string]any) string {
			line := fmt.Sprintf("- %s %s", field(row, "policy_number"), field(row, "coverage_type"))
			if limit, ok := money(row["limit_amount"]); ok {
				line += ": limit " + limit
			}
			if deductible, ok := money(row["deductible"]); ok {
				line += ", deductible " + deductible
			}
			return line
		})
	case contractx.FactPaymentSchedule:
		return formatRows(value, func(row map[string]any) string {
			line := "- " + field(row, "policy_number")
			if amount, ok := money(row["amount"]); ok {
				line += ": " + amount
			}
			if due := field(row, "due_date"); due != "?" {
				line += " due " + due
			}
			if status := field(row, "status"); status != "?" {
				line += " (" + status + ")"
			}
			return line
		})
	case contractx.FactAgentContact:
		return formatAgent(value)
	case contractx.FactClaimStatus:
		return formatRows(value, func(row map[string]any) string {
			line := fmt.Sprintf("- %s: %s", field(row, "claim_number"), field(row, "status"))
			if filed := field(row, "filed_at"); filed != "?" {
				line += ", filed " + filed
			}
			return line
		})
	case contractx.FactGeneralAnswer:
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
		return fmt.Sprintf("%v", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func formatAgent(value any) string {
	row, ok := value.(map[string]any)
	if !ok {
		return fmt.Sprintf("Your agent: %v", value)
	}

	parts := []string{"Your agent is " + field(row, "name") + "."}
	if phone := field(row, "phone"); phone != "?" {
		parts = append(parts, "Phone: "+phone+".")
	}
	if email := field(row, "email"); email != "?" {
		parts = append(parts, "Email: "+email+".")
	}
	return strings.Join(parts, " ")
}

func formatRows(value any, render func(map[string]any) string) string {
	rows, ok := value.([]any)
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	if len(rows) == 0 {
		return "(no records found)"
	}

	lines := make([]string, 0, len(rows))
	for _, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			lines = append(lines, fmt.Sprintf("- %v", raw))
			continue
		}
		lines = append(lines, render(row))
	}
	return strings.Join(lines, "\n")
}

func field(row map[string]any, key string) string {
	if row == nil {
		return "?"
	}
	if s, ok := row[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return "?"
}

func money(value any) (string, bool) {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("$%.2f", v), true
	case int:
		return fmt.Sprintf("$%d.00", v), true
	case int64:
		return fmt.Sprintf("$%d.00", v), true
	default:
		return "", false
	}
}
