package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/lms-registry/internal/address"
	"github.com/SAP-F-2025/lms-registry/internal/config"
	"github.com/SAP-F-2025/lms-registry/internal/deploy"
	"github.com/SAP-F-2025/lms-registry/internal/events"
	"github.com/SAP-F-2025/lms-registry/internal/repositories/memory"
	"github.com/SAP-F-2025/lms-registry/internal/services"
	"github.com/SAP-F-2025/lms-registry/internal/validator"
)

const registryURLEnv = "LMS_REGISTRY_URL"

var (
	loadConfigFunc = config.LoadConfig // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out    io.Writer
	logger *slog.Logger
	env    []string
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  deploy  -plan FILE [-target URL] [-identity ID] [-token JWT] - apply a deploy plan")
	fmt.Fprintln(cli.out, "  address -course N -exam I [-target URL]                      - print an exam address")
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "Without -target, deploy runs against a fresh in-process registry and %s is used for address.\n", registryURLEnv)
}

func (cli *commandLine) getenv(key string) string {
	return deploy.EnvMap(cli.env)[key]
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	deployCmd := flag.NewFlagSet("deploy", flag.ContinueOnError)
	deployCmd.SetOutput(cli.out)
	deployPlan := deployCmd.String("plan", "", "Path to the HCL deploy plan.")
	deployTarget := deployCmd.String("target", "", "Base URL of the registry daemon. Empty runs in-process.")
	deployIdentity := deployCmd.String("identity", "", "Overrides the identity named in the plan.")
	deployToken := deployCmd.String("token", "", "Bearer token sent instead of the identity header.")

	addressCmd := flag.NewFlagSet("address", flag.ContinueOnError)
	addressCmd.SetOutput(cli.out)
	addressCourse := addressCmd.Uint("course", 0, "Course id.")
	addressExam := addressCmd.Int("exam", -1, "Exam index within the course.")
	addressTarget := addressCmd.String("target", cli.getenv(registryURLEnv), "Base URL of the registry daemon.")

	switch args[1] {
	case "deploy":
		if err := deployCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *deployPlan == "" {
			deployCmd.Usage()
			return errHelp
		}
		return cli.deploy(*deployPlan, *deployTarget, *deployIdentity, *deployToken)
	case "address":
		if err := addressCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addressCourse == 0 || *addressExam < 0 || *addressTarget == "" {
			addressCmd.Usage()
			return errHelp
		}
		return cli.address(uint(*addressCourse), *addressExam, *addressTarget)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) deploy(planPath, targetURL, identity, token string) error {
	plan, err := deploy.DecodePlanFile(planPath, deploy.EnvMap(cli.env))
	if err != nil {
		return err
	}
	if identity != "" {
		plan.Identity = identity
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var target deploy.Target
	if targetURL != "" {
		httpTarget := deploy.NewHTTPTarget(targetURL, nil)
		httpTarget.Token = token
		target = httpTarget
	} else {
		sm, err := cli.localServiceManager(ctx)
		if err != nil {
			return err
		}
		defer sm.Shutdown(context.Background())
		target = deploy.NewLocalTarget(sm)
		fmt.Fprintf(cli.out, "registry %s (in-process)\n", sm.Registry().RegistryAddress())
	}

	result, err := deploy.NewRunner(target, cli.logger).Run(ctx, plan)
	result.Print(cli.out)
	return err
}

func (cli *commandLine) address(courseID uint, index int, targetURL string) error {
	addr, err := deploy.NewHTTPTarget(targetURL, nil).GetExamAddress(context.Background(), courseID, index)
	if err != nil {
		if kind := services.KindOf(err); kind != services.KindNone {
			return fmt.Errorf("[%s] course_id=%d exam_index=%d: %w", kind, courseID, index, err)
		}
		return err
	}
	fmt.Fprintln(cli.out, addr)
	return nil
}

// localServiceManager builds an in-memory registry named by the usual
// REGISTRY_* settings.
func (cli *commandLine) localServiceManager(ctx context.Context) (services.ServiceManager, error) {
	cfg, err := loadConfigFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry, err := address.ResolveRegistry(cfg.Registry.Address, cfg.Registry.Name)
	if err != nil {
		return nil, err
	}
	policy, err := services.ParseRegistrationPolicy(cfg.Registry.RegistrationPolicy)
	if err != nil {
		return nil, err
	}

	publisher, err := events.NewPublisher(events.Config{Topic: cfg.Kafka.Topic}, cli.logger)
	if err != nil {
		return nil, err
	}

	smConfig := services.DefaultServiceManagerConfig()
	smConfig.RegistrationPolicy = policy

	sm := services.NewServiceManager(
		memory.NewRepositoryManager(),
		address.NewDeriver(registry),
		publisher,
		cli.logger,
		validator.New(),
		smConfig,
	)
	if err := sm.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}
	return sm, nil
}
