// Command autoclicker replays tap scripts on an Android device or the local
// desktop.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Amayakite/AutoClicker/internal/cli"
	"github.com/Amayakite/AutoClicker/internal/dispatch"
	"github.com/Amayakite/AutoClicker/internal/dispatch/desktop"
)

func main() {
	cli.RegisterTarget("desktop", desktopTarget)

	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// desktopTarget taps the host mouse and stops on the ctrl+shift+q hotkey.
func desktopTarget(*cli.RunOptions) (cli.Target, error) {
	probe := dispatch.ProbeAccessibility(nil)
	return cli.Target{
		Dispatcher: desktop.NewRobot(nil),
		Watch: func(ctx context.Context, stop func()) {
			desktop.WatchStopKey(ctx, desktop.DefaultStopKeys, stop)
		},
		Hint: probe.Guidance,
	}, nil
}
