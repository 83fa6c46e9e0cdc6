package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RunInteractive drives the add/kill/list/exit/del command loop over
// in/out, matching the reference manager's interactive_loop. cleanup is
// invoked once on "del" after Shutdown, to remove the run's log and
// config artifacts.
func RunInteractive(m *NodeManager, in io.Reader, out io.Writer, cleanup func()) {
	fmt.Fprintln(out, "P2P NETWORK MANAGER")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  add")
	fmt.Fprintln(out, "  kill <port>")
	fmt.Fprintln(out, "  list")
	fmt.Fprintln(out, "  exit")
	fmt.Fprintln(out, "  del")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "manager> ")
		if !scanner.Scan() {
			return
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch {
		case cmd == "add":
			port, err := m.SpawnPeer()
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintf(out, "spawned peer on port %d\n", port)

		case strings.HasPrefix(cmd, "kill"):
			fields := strings.Fields(cmd)
			if len(fields) != 2 {
				continue
			}
			port, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			m.KillPeer(port)

		case cmd == "list":
			fmt.Fprintln(out, "Active peers:", m.ListPeers())

		case cmd == "exit":
			m.Shutdown()
			return

		case cmd == "del":
			m.Shutdown()
			if cleanup != nil {
				cleanup()
			}
			return
		}
	}
}
