package snapshot

import (
	"bytes"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	redactedParam = "REDACTED"
	redactedValue = "***"
)

// plainVars may appear unredacted in a recent command.
var plainVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "TMPDIR": true, "HISTFILE": true,
	"XDG_CONFIG_HOME": true, "XDG_RUNTIME_DIR": true,
}

// secretFlag matches long options whose inline value is a credential,
// e.g. --password=hunter2 or --api-key=abc.
var secretFlag = regexp.MustCompile(`^(--?[A-Za-z0-9-]*(?i:password|passwd|token|secret|api-?key|auth)[A-Za-z0-9-]*=)`)

// urlCredentials matches the userinfo part of a URL.
var urlCredentials = regexp.MustCompile(`://[^/@\s]+@`)

func keepParam(name string) bool {
	if plainVars[name] || name == redactedParam {
		return true
	}
	// Special and positional parameters: $?, $#, $1, ...
	return len(name) == 1 && !isNameByte(name[0]) || name == "_" || isDigits(name)
}

func isNameByte(b byte) bool {
	return b == '_' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// Redact scrubs a history entry before it leaves the machine in a prompt or
// trace. Expansions of non-plain variables, assigned values, credential
// flags and URL userinfo are masked. The command name itself is never
// changed. Entries the shell parser rejects keep only their leading words
// up to the first one that could carry a secret.
func Redact(cmd string) string {
	prog, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(cmd), "")
	if err != nil {
		return leadingWords(cmd)
	}

	syntax.Walk(prog, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.ParamExp:
			if n.Param != nil && !keepParam(n.Param.Value) {
				n.Param.Value = redactedParam
			}
		case *syntax.Assign:
			if n.Name != nil && !plainVars[n.Name.Value] && n.Value != nil {
				n.Value.Parts = []syntax.WordPart{&syntax.Lit{Value: redactedValue}}
			}
		case *syntax.Word:
			return !maskWord(n)
		}
		return true
	})

	var buf bytes.Buffer
	if err := syntax.NewPrinter().Print(&buf, prog); err != nil {
		return leadingWords(cmd)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// maskWord masks credentials carried in a word's leading literal. It reports
// whether the word was replaced.
func maskWord(w *syntax.Word) bool {
	if len(w.Parts) == 0 {
		return false
	}
	lit, ok := w.Parts[0].(*syntax.Lit)
	if !ok {
		return false
	}
	if m := secretFlag.FindString(lit.Value); m != "" {
		w.Parts = []syntax.WordPart{&syntax.Lit{Value: m + redactedValue}}
		return true
	}
	if urlCredentials.MatchString(lit.Value) {
		lit.Value = urlCredentials.ReplaceAllString(lit.Value, "://"+redactedValue+"@")
	}
	return false
}

// leadingWords keeps the words of cmd before the first one containing an
// expansion, an assignment, a quote or URL credentials.
func leadingWords(cmd string) string {
	fields := strings.Fields(cmd)
	kept := fields[:0]
	for _, f := range fields {
		if strings.ContainsAny(f, "$=`'\"") || urlCredentials.MatchString(f) {
			break
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
