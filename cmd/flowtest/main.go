// Command flowtest validates, draws and drives flow documents from the
// command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/petrijr/flowtest"
	"github.com/petrijr/flowtest/snapshotstore"
)

type cli struct {
	v      *viper.Viper
	cfg    *flowtest.Config
	logger *zap.Logger
	out    io.Writer
}

func setupFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.PersistentFlags().String("config", "", "Path to config file.")
	cmd.PersistentFlags().String("resource-root", flowtest.DefaultResourceRoot, "directory flow locations are resolved against")
	cmd.PersistentFlags().String("base-path", "", "base path flow ids are derived from")
	cmd.PersistentFlags().String("log-level", "info", "log level")
	cmd.PersistentFlags().StringSlice("parent", nil, "parent flow documents")

	for key, flag := range map[string]string{
		"resource_root": "resource-root",
		"base_path":     "base-path",
		"log.level":     "log-level",
	} {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) setupConfig(cmd *cobra.Command, _ []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if configFile != "" {
		c.v.SetConfigFile(configFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	c.cfg, err = flowtest.ConfigFromViper(c.v)
	if err != nil {
		return err
	}
	c.logger, err = c.cfg.NewLogger()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(c.logger)
	return nil
}

// builder builds the document at location and the parents named by
// --parent, with the beans and sub-flows of tc.
func (c *cli) builder(cmd *cobra.Command, location string, tc *flowtest.FlowTestContext) (*flowtest.ExternalizedFlowBuilder, error) {
	conf := c.cfg.NewDocumentConfiguration(location)
	parents, err := cmd.Flags().GetStringSlice("parent")
	if err != nil {
		return nil, err
	}
	for _, p := range parents {
		conf.AddParentFlow(p)
	}
	return flowtest.NewFlowBuilder(conf).WithContext(tc).WithLogger(c.logger), nil
}

func (c *cli) validate(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, location := range args {
		b, err := c.builder(cmd, location, nil)
		if err != nil {
			return err
		}
		flow, err := b.BuildFlow()
		if err != nil {
			failed++
			fmt.Fprintf(c.out, "FAIL %s: %v\n", location, err)
			continue
		}
		fmt.Fprintf(c.out, "ok   %s: flow %s, states %s, outcomes %s\n", location, flow.ID(),
			strings.Join(flow.StateIDs(), ","), strings.Join(flow.PossibleOutcomes(), ","))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(args))
	}
	return nil
}

func (c *cli) graph(cmd *cobra.Command, args []string) error {
	b, err := c.builder(cmd, args[0], nil)
	if err != nil {
		return err
	}
	flow, err := b.BuildFlow()
	if err != nil {
		return err
	}
	return flowtest.WriteDOT(c.out, flow)
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := cmd.Flags()
	inputs, err := flags.GetStringToString("input")
	if err != nil {
		return err
	}
	params, err := flags.GetStringToString("param")
	if err != nil {
		return err
	}
	stubs, err := flags.GetStringToString("stub")
	if err != nil {
		return err
	}
	events, err := flags.GetStringSlice("event")
	if err != nil {
		return err
	}

	tc := flowtest.NewFlowTestContext()
	for id, end := range stubs {
		stub, err := flowtest.NewStubFlow(id, end)
		if err != nil {
			return err
		}
		tc.AddSubFlow(stub)
	}
	b, err := c.builder(cmd, args[0], tc)
	if err != nil {
		return err
	}

	store, closeStore, err := snapshotstore.Open(ctx, c.cfg.Snapshots)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			c.logger.Warn("close snapshot store", zap.Error(err))
		}
	}()

	locale, err := c.cfg.LocaleTag()
	if err != nil {
		return err
	}
	opts := []flowtest.Option{flowtest.WithLogger(c.logger), flowtest.WithContext(ctx), flowtest.WithLocale(locale)}
	if store != nil {
		opts = append(opts, flowtest.WithSnapshotStore(store))
	}
	tester, err := flowtest.NewMockFlowTester(b, opts...)
	if err != nil {
		return err
	}

	if err := tester.StartFlow(toAny(inputs)); err != nil {
		return err
	}
	if err := c.report(tester, "start"); err != nil {
		return err
	}
	for _, ev := range events {
		if ended, _ := tester.ExecutionHasEnded(); ended {
			return fmt.Errorf("flow ended before event %q", ev)
		}
		tester.SetEventID(ev)
		if err := tester.ResumeFlow(toAny(params)); err != nil {
			return err
		}
		if err := c.report(tester, ev); err != nil {
			return err
		}
	}

	if store != nil {
		snaps, err := tester.Snapshots(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "snapshots: %d recorded for execution %s\n", len(snaps), tester.CurrentFlowExecution().Key())
	}
	return nil
}

// report prints where the flow is after the request triggered by step.
func (c *cli) report(tester *flowtest.MockFlowTester, step string) error {
	msgs, err := tester.AllMessages()
	if err != nil {
		return err
	}
	ended, err := tester.ExecutionHasEnded()
	if err != nil {
		return err
	}
	if !ended {
		state, err := tester.CurrentStateID()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s: state %s\n", step, state)
	} else {
		outcome, err := tester.FlowOutcome()
		if err != nil {
			return err
		}
		output, err := tester.OutputAttributes()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s: ended in %s\n", step, outcome)
		for _, k := range output.Keys() {
			fmt.Fprintf(c.out, "  output %s = %v\n", k, output.Get(k))
		}
		if url, _ := tester.ExternalRedirectURL(); url != "" {
			fmt.Fprintf(c.out, "  redirect %s\n", url)
		}
	}
	for _, m := range msgs {
		fmt.Fprintf(c.out, "  message %s\n", m)
	}
	return nil
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func newRootCommand(out io.Writer) (*cobra.Command, error) {
	c := &cli{v: flowtest.NewViper(), out: out}

	root := &cobra.Command{
		Use:               "flowtest",
		Short:             "Validate, draw and drive flow documents",
		SilenceUsage:      true,
		PersistentPreRunE: c.setupConfig,
	}
	if err := setupFlags(root, c.v); err != nil {
		return nil, err
	}

	root.AddCommand(&cobra.Command{
		Use:   "validate <file>...",
		Short: "Build each document and report its states",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.validate,
	})
	root.AddCommand(&cobra.Command{
		Use:   "graph <file>",
		Short: "Print the state graph in Graphviz DOT syntax",
		Args:  cobra.ExactArgs(1),
		RunE:  c.graph,
	})

	run := &cobra.Command{
		Use:   "run <file>",
		Short: "Start a flow and submit events to it",
		Args:  cobra.ExactArgs(1),
		RunE:  c.run,
	}
	run.Flags().StringToString("input", nil, "flow input attributes")
	run.Flags().StringToString("param", nil, "request parameters sent with every event")
	run.Flags().StringToString("stub", nil, "stub sub-flows as id=endStateId")
	run.Flags().StringSlice("event", nil, "events to submit, in order")
	root.AddCommand(run)

	return root, nil
}

func main() {
	root, err := newRootCommand(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
