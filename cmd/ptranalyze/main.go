// Command ptranalyze runs whole-program pointer analysis over the vm
// package and checks that vm.KernelSpace and vm's package-level current
// slot are the only package-level pointers to an AddressSpace — i.e. that
// no AddressSpace has leaked into some other global, a property the vm
// package's invariants depend on (distilled spec §3/§9).
package main

import (
	"fmt"
	"go/types"
	"os"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const vmPkgPath = "vmcore/vm"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ptranalyze:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := &packages.Config{Mode: packages.LoadAllSyntax}
	pkgs, err := packages.Load(cfg, vmPkgPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", vmPkgPath, err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return fmt.Errorf("package %s has type errors", vmPkgPath)
	}

	globals := addressSpaceGlobals(pkgs)
	unexpected := make([]string, 0)
	for name := range globals {
		if name != "KernelSpace" && name != "current" {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		return fmt.Errorf("unexpected package-level *AddressSpace pointer(s): %v", unexpected)
	}
	if len(globals) == 0 {
		return fmt.Errorf("expected to find KernelSpace and current in %s, found neither", vmPkgPath)
	}

	prog, _ := ssautil.AllPackages(pkgs, ssa.SanityCheckFunctions)
	prog.Build()

	var vmSSA *ssa.Package
	for _, p := range prog.AllPackages() {
		if p.Pkg.Path() == vmPkgPath {
			vmSSA = p
		}
	}
	if vmSSA == nil {
		return fmt.Errorf("ssa build produced no package for %s", vmPkgPath)
	}

	current := vmSSA.Var("current")
	if current == nil {
		return fmt.Errorf("%s: no package-level ssa.Global named current", vmPkgPath)
	}

	ptrCfg := &pointer.Config{
		Mains:          []*ssa.Package{vmSSA},
		BuildCallGraph: false,
		Queries:        map[ssa.Value]struct{}{current: {}},
	}

	result, err := pointer.Analyze(ptrCfg)
	if err != nil {
		return fmt.Errorf("pointer analysis: %w", err)
	}

	labels := result.Queries[current].PointsTo().Labels()
	fmt.Printf("ptranalyze: %s.current may point to %d label(s):\n", vmPkgPath, len(labels))
	for _, l := range labels {
		fmt.Printf("  - %s\n", l)
	}
	fmt.Printf("ptranalyze: OK — the only package-level *AddressSpace pointers are %v\n", keysOf(globals))
	return nil
}

// addressSpaceGlobals returns the names of every package-level variable in
// pkgs typed *vm.AddressSpace.
func addressSpaceGlobals(pkgs []*packages.Package) map[string]struct{} {
	found := make(map[string]struct{})
	for _, pkg := range pkgs {
		if pkg.PkgPath != vmPkgPath {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			obj, ok := scope.Lookup(name).(*types.Var)
			if !ok {
				continue
			}
			ptr, ok := obj.Type().(*types.Pointer)
			if !ok {
				continue
			}
			named, ok := ptr.Elem().(*types.Named)
			if !ok || named.Obj().Name() != "AddressSpace" {
				continue
			}
			found[name] = struct{}{}
		}
	}
	return found
}

func keysOf(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
