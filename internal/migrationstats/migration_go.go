package migrationstats

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
)

const registerGoFuncName = "NewGoMigration"

// goFunc describes one direction argument passed to NewGoMigration.
type goFunc struct {
	isNil bool
	// runDB is true when the function runs outside a transaction.
	runDB bool
}

func (f goFunc) count() int {
	if f.isNil {
		return 0
	}
	return 1
}

func (f goFunc) useTx() bool {
	return f.isNil || !f.runDB
}

type goMigration struct {
	up, down goFunc
}

// parseGoFile finds the single NewGoMigration call in a Go migration file and inspects its up and
// down arguments.
func parseGoFile(r io.Reader) (*goMigration, error) {
	astFile, err := parser.ParseFile(
		token.NewFileSet(),
		"", // filename
		r,
		// Imports are never resolved, skipping object resolution speeds up parsing.
		parser.SkipObjectResolution,
	)
	if err != nil {
		return nil, err
	}
	var calls []*ast.CallExpr
	ast.Inspect(astFile, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if funcName(call.Fun) == registerGoFuncName {
			calls = append(calls, call)
		}
		return true
	})
	switch len(calls) {
	case 0:
		return nil, fmt.Errorf("no %s call found", registerGoFuncName)
	case 1:
	default:
		return nil, fmt.Errorf("found %d %s calls, expecting exactly one", len(calls), registerGoFuncName)
	}
	call := calls[0]
	if len(call.Args) != 3 {
		return nil, fmt.Errorf("%s takes 3 arguments: got %d", registerGoFuncName, len(call.Args))
	}
	up, err := parseGoFunc(call.Args[1])
	if err != nil {
		return nil, fmt.Errorf("up: %w", err)
	}
	down, err := parseGoFunc(call.Args[2])
	if err != nil {
		return nil, fmt.Errorf("down: %w", err)
	}
	return &goMigration{up: up, down: down}, nil
}

func funcName(expr ast.Expr) string {
	switch fn := expr.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return fn.Sel.Name
	}
	return ""
}

// parseGoFunc accepts nil or a &GoFunc{...} literal.
func parseGoFunc(expr ast.Expr) (goFunc, error) {
	if ident, ok := expr.(*ast.Ident); ok && ident.Name == "nil" {
		return goFunc{isNil: true}, nil
	}
	unary, ok := expr.(*ast.UnaryExpr)
	if !ok || unary.Op != token.AND {
		return goFunc{}, errors.New("argument must be nil or a &GoFunc{} literal")
	}
	lit, ok := unary.X.(*ast.CompositeLit)
	if !ok {
		return goFunc{}, errors.New("argument must be nil or a &GoFunc{} literal")
	}
	var f goFunc
	var hasFunc bool
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			return goFunc{}, errors.New("GoFunc literal must use keyed fields")
		}
		switch funcName(kv.Key) {
		case "RunTx":
			hasFunc = true
		case "RunDB":
			hasFunc = true
			f.runDB = true
		case "Mode":
			if funcName(kv.Value) == "TransactionDisabled" {
				f.runDB = true
			}
		}
	}
	// An empty &GoFunc{} is a versioned no-op.
	f.isNil = !hasFunc
	return f, nil
}
