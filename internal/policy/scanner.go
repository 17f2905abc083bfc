package policy

import "strings"

// StripLiteralsAndComments removes the parts of a T-SQL statement that may
// legitimately contain keywords or semicolons: single-quoted string literals
// (with '' escapes), double-quoted and [bracketed] identifiers (with ]]
// escapes), -- line comments, and /* */ block comments (which nest in
// T-SQL). Each removed region is replaced by a single placeholder so keyword
// scans and the statement-separator scan only see executable text.
//
// The scanner is deliberately conservative: malformed input (an unclosed
// literal or comment) consumes to end of input, leaving nothing hidden from
// the ban rules.
func StripLiteralsAndComments(sql string) string {
	var result strings.Builder
	i := 0
	n := len(sql)

	for i < n {
		// Line comment.
		if i+1 < n && sql[i] == '-' && sql[i+1] == '-' {
			for i < n && sql[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		// Block comment, nesting per T-SQL.
		if i+1 < n && sql[i] == '/' && sql[i+1] == '*' {
			depth := 1
			i += 2
			for i < n && depth > 0 {
				if i+1 < n && sql[i] == '/' && sql[i+1] == '*' {
					depth++
					i += 2
					continue
				}
				if i+1 < n && sql[i] == '*' && sql[i+1] == '/' {
					depth--
					i += 2
					continue
				}
				i++
			}
			result.WriteByte(' ')
			continue
		}

		// String literal, '' escapes a quote. N'...' prefixes reach here
		// with the N already emitted, which is harmless.
		if sql[i] == '\'' {
			i++
			for i < n {
				if sql[i] == '\'' {
					if i+1 < n && sql[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			result.WriteString("''")
			continue
		}

		// Bracketed identifier, ]] escapes a closing bracket.
		if sql[i] == '[' {
			i++
			for i < n {
				if sql[i] == ']' {
					if i+1 < n && sql[i+1] == ']' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			result.WriteString("[]")
			continue
		}

		// Double-quoted identifier (QUOTED_IDENTIFIER on), "" escapes.
		if sql[i] == '"' {
			i++
			for i < n {
				if sql[i] == '"' {
					if i+1 < n && sql[i+1] == '"' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			result.WriteString(`""`)
			continue
		}

		result.WriteByte(sql[i])
		i++
	}

	return result.String()
}
