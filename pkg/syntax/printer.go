package syntax

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Stringify renders a program back to source. The output parses to the same
// tree and the same jump table; only plain comments are lost.
func Stringify(prog *Program) string {
	p := &printer{labels: comeFromIndex(prog.JumpTable)}
	p.writeBlock(prog.Body, 0)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	labels map[*Block]map[int][]string
}

// comeFromIndex groups the jump table by block and position. Labels at one
// position are sorted so the output is stable.
func comeFromIndex(table map[string][]JumpLocation) map[*Block]map[int][]string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[*Block]map[int][]string)
	for _, name := range names {
		for _, loc := range table[name] {
			if index[loc.Block] == nil {
				index[loc.Block] = make(map[int][]string)
			}
			index[loc.Block][loc.Skip] = append(index[loc.Block][loc.Skip], name)
		}
	}
	return index
}

func (p *printer) writeComeFroms(block *Block, at int, pad string) {
	for _, label := range p.labels[block][at] {
		p.sb.WriteString(pad + "come from " + label + ";\n")
	}
}

func (p *printer) writeBlock(block *Block, indent int) {
	pad := strings.Repeat("  ", indent)
	for i, stmt := range block.Statements {
		p.writeComeFroms(block, i, pad)
		p.sb.WriteString(pad)
		switch s := stmt.(type) {
		case *NoopStmt:
			p.sb.WriteString(";")
		case *ExprStmt:
			p.sb.WriteString(StringifyExpr(s.Expr))
			p.sb.WriteString(";")
		case *ScopeStmt:
			p.writeScope(s, indent)
		case *GotoStmt:
			p.sb.WriteString("// " + s.Label)
		case *IfStmt:
			p.writeBody(s.Run, indent)
			p.writeUnless(s.Unless, indent)
		default:
			panic(fmt.Sprintf("syntax: unknown statement %T", stmt))
		}
		p.sb.WriteString("\n")
	}
	p.writeComeFroms(block, len(block.Statements), pad)
}

func (p *printer) writeScope(s *ScopeStmt, indent int) {
	p.sb.WriteString("{\n")
	p.writeBlock(s.Body, indent+1)
	p.sb.WriteString(strings.Repeat("  ", indent))
	p.sb.WriteString("}")
}

func (p *printer) writeBody(run Stmt, indent int) {
	switch r := run.(type) {
	case *ScopeStmt:
		p.writeScope(r, indent)
	case *ExprStmt:
		p.sb.WriteString(StringifyExpr(r.Expr))
	default:
		panic(fmt.Sprintf("syntax: unexpected unless body %T", run))
	}
}

func (p *printer) writeUnless(u *Unless, indent int) {
	for u != nil {
		p.sb.WriteString(" unless ")
		p.sb.WriteString(StringifyExpr(u.Cond))
		if u.Then == nil {
			return
		}
		p.sb.WriteString(" then ")
		p.writeBody(u.Then.Run, indent)
		u = u.Then.Unless
	}
}

// StringifyExpr renders an expression as source.
func StringifyExpr(expr Expr) string {
	switch e := expr.(type) {
	case *VarExpr:
		return e.Name
	case *IntExpr:
		// Literals are never negative in source. One that wrapped is printed
		// as the unsigned digits the lexer wraps back to the same value.
		return strconv.FormatUint(uint64(e.Value), 10)
	case *StringExpr:
		return quote(e.Value)
	case *CallExpr:
		args := make([]string, len(e.Args))
		for i, arg := range e.Args {
			args[i] = StringifyExpr(arg)
		}
		return e.Name + "(" + strings.Join(args, ", ") + ")"
	case *BracketExpr:
		return "(" + StringifyExpr(e.Inner) + ")"
	case *BinaryExpr:
		return StringifyExpr(e.Left) + " " + string(e.Op) + " " + StringifyExpr(e.Right)
	case *UnaryExpr:
		return string(e.Op) + StringifyExpr(e.Operand)
	case *SetExpr:
		return e.Name + " = " + StringifyExpr(e.Value)
	default:
		panic(fmt.Sprintf("syntax: unknown expression %T", expr))
	}
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
)

// quote renders s as a double-quoted string literal the lexer reads back.
func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
