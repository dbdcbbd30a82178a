/*
 * ledgergraph
 *
 * Package console implements the line-oriented command processor read
 * from stdin and written to stdout (component §6 "Command-line
 * surface"), in the same shape as the teacher's console.Console: an
 * injected Reader/Writer pair and a Run loop that reads one command per
 * line. Unlike the teacher's console this one talks to an in-process
 * engine.Engine rather than a remote HTTP server - there is no
 * authentication, partitions or child-console split left to model,
 * since this grammar has exactly 6 command forms and no access control
 * (§1 "out of scope").
 */
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/krotik/ledgergraph/engine"
)

/*
Console reads command lines from in and writes one JSON array per
command to out, stopping cleanly at EOF (§6 "reads commands from
stdin, one per line, and writes a JSON array per command to stdout").
*/
type Console struct {
	Engine *engine.Engine
	In     io.Reader
	Out    io.Writer
}

/*
New builds a Console over the given engine and I/O streams.
*/
func New(e *engine.Engine, in io.Reader, out io.Writer) *Console {
	return &Console{Engine: e, In: in, Out: out}
}

/*
Run reads lines from In until EOF, executing each non-blank line
against the engine and writing its JSON result to Out followed by a
newline. It returns the first read error that is not io.EOF.
*/
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.In)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		res := c.Engine.Execute(ctx, line)

		b, err := res.MarshalJSON()
		if err != nil {
			// A Row/Set marshal failure here would mean a value could not
			// round trip through encoding/json - nothing in this grammar
			// produces such a value, so this is not expected in practice.
			fmt.Fprintf(c.Out, `[{"error":%q}]`+"\n", err.Error())
			continue
		}

		fmt.Fprintln(c.Out, string(b))
	}

	return scanner.Err()
}
