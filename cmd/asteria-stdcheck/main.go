// cmd/asteria-stdcheck is a thin smoke-test entrypoint: it builds a Global
// Context at the latest API version and prints the registered std.* tree,
// one line per module and member, so an embedder can sanity-check which
// standard library surface a build links in. It is not a REPL or script
// runner — the parser/AVMC engine this would drive are out of scope.
package main

import (
	"fmt"
	"os"
	"sort"

	"asteria"
)

func main() {
	ctx := asteria.NewContext(asteria.APIVersionLatest)
	std := asteria.Std(ctx)

	names := std.Keys()
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	for _, modName := range sorted {
		modVal, ok := std.Get(modName)
		if !ok || !modVal.IsObject() {
			continue
		}
		members := modVal.MustObject().Keys()
		sortedMembers := append([]string(nil), members...)
		sort.Strings(sortedMembers)
		for _, member := range sortedMembers {
			fmt.Fprintf(os.Stdout, "std.%s.%s\n", modName, member)
		}
	}
}
