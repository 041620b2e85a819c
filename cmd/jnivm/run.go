package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	jnivm "github.com/Dadoum/libjnivm"
	"github.com/Dadoum/libjnivm/codegen"
	"github.com/Dadoum/libjnivm/host"
	jlog "github.com/Dadoum/libjnivm/log"
)

type runOptions struct {
	config  string
	libDir  string
	calls   []string
	dump    string
	exclude []string
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach the configured libraries and call static native methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.config, "config", "c", "", "runtime configuration file")
	f.StringVar(&o.libDir, "lib-dir", "", "directory library paths are relative to")
	f.StringArrayVar(&o.calls, "call", nil, "static method to call, as class.method(signature); repeatable")
	f.StringVar(&o.dump, "dump", "", "write the recorded classes to this YAML file")
	f.StringSliceVar(&o.exclude, "exclude", []string{"java/"}, "class name prefixes left out of the dump")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command) (err error) {
	ctx := jnivm.WithThread(cmd.Context(), 1)
	cfg, err := jnivm.LoadConfig(o.config)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(jlog.WithWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	hostOpts := []host.Option{host.WithLogger(logger)}
	if o.libDir != "" {
		hostOpts = append(hostOpts, host.WithFS(os.DirFS(o.libDir)))
	}
	exec, err := host.NewExecutor(ctx, hostOpts...)
	if err != nil {
		return err
	}
	rec := codegen.NewRecorder(codegen.WithExclude(o.exclude...))
	vmOpts := append(exec.VMOptions(), jnivm.WithLogger(logger), jnivm.WithObserver(rec))
	vm, err := jnivm.NewFromConfig(ctx, cfg, vmOpts...)
	if err != nil {
		_ = exec.Close(ctx)
		return err
	}
	defer func() {
		var result *multierror.Error
		if cerr := vm.Close(ctx); cerr != nil {
			result = multierror.Append(result, cerr)
		}
		if cerr := exec.Close(ctx); cerr != nil {
			result = multierror.Append(result, cerr)
		}
		if cerr := result.ErrorOrNil(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	env := vm.GetEnv(ctx)
	for _, call := range o.calls {
		if err := invoke(cmd, env, call); err != nil {
			return err
		}
	}

	if o.dump != "" {
		return rec.Dump().WriteFile(o.dump)
	}
	return nil
}

var errBadCall = errors.New("expected class.method(signature)")

// parseCall splits "com/example/Main.start()V" into its class, method and
// signature.
func parseCall(s string) (class, method, sig string, err error) {
	paren := strings.IndexByte(s, '(')
	if paren < 0 {
		return "", "", "", fmt.Errorf("%w: %q", errBadCall, s)
	}
	dot := strings.LastIndexByte(s[:paren], '.')
	if dot <= 0 || dot == paren-1 {
		return "", "", "", fmt.Errorf("%w: %q", errBadCall, s)
	}
	return s[:dot], s[dot+1 : paren], s[paren:], nil
}

func invoke(cmd *cobra.Command, env *jnivm.Env, call string) error {
	class, name, sig, err := parseCall(call)
	if err != nil {
		return err
	}
	cls, err := env.FindClass(class)
	if err != nil {
		return err
	}
	m := cls.Method(name, sig)
	if m == nil {
		m = cls.DefineNative(name, sig, true)
	}
	v, err := m.InvokeStatic(env, cls)
	if err != nil {
		return fmt.Errorf("%s: %w", call, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", call, v.Interface())
	return err
}
