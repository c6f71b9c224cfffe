package broker

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// writeLogonList atomically rewrites the broker's persisted view of every
// logged-on identity, spec.md §6.7's "<from>\t<to|->\t(ATC|ACFT)\t<addr>\t(WS|TLS)"
// line format. The write-then-rename pattern (write to a sibling temp file,
// fsync, rename over the target) avoids a reader ever observing a
// half-written file.
func (b *Broker) writeLogonList(path string) error {
	b.identMu.RLock()
	type row struct {
		from, to, addr string
		isATC          bool
		kind           TransportKind
	}
	var rows []row
	for from, conns := range b.byFrom {
		for _, c := range conns {
			isATC, _, target := c.snapshotIdents()
			to := target
			if to == "" {
				to = "-"
			}
			rows = append(rows, row{from: from, to: to, addr: c.peerAddr, isATC: isATC, kind: c.kind})
		}
	}
	b.identMu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].from < rows[j].from })

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".logonlist-*.tmp")
	if err != nil {
		return fmt.Errorf("broker: create temp logon list: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	w := bufio.NewWriter(tmp)
	for _, r := range rows {
		statype := "ACFT"
		if r.isATC {
			statype = "ATC"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.from, r.to, statype, r.addr, r.kind.String())
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("broker: write temp logon list: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("broker: sync temp logon list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("broker: close temp logon list: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("broker: rename logon list into place: %w", err)
	}
	return nil
}
