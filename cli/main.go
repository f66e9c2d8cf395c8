package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"holderscan/internal/config"
	"holderscan/internal/logic/balance"
	"holderscan/internal/logic/holder"
	"holderscan/internal/progress"
	"holderscan/internal/svc"
	"holderscan/internal/types"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

const usage = `Usage:
  cli get-token-holders [flags] <tokenAddress> <tokenName> <deploymentBlock>
  cli get-balance [flags] <address>...

Run "cli <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "get-token-holders":
		err = runTokenHolders(ctx, os.Args[2:])
	case "get-balance":
		err = runBalance(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("错误: %v", err)
	}
}

type commonFlags struct {
	configFile *string
	chain      *string
	block      *uint64
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configFile: fs.String("f", "etc/holderscan.yaml", "the config file"),
		chain:      fs.String("chain", "ETH", "要查询的区块链 (例如: ETH, BSC)"),
		block:      fs.Uint64("b", 0, "目标区块高度, 0 表示最新区块"),
	}
}

func (f commonFlags) serviceContext() *svc.ServiceContext {
	var c config.Config
	conf.MustLoad(*f.configFile, &c)
	logx.MustSetup(c.Log)
	return svc.NewServiceContext(c)
}

func runTokenHolders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get-token-holders", flag.ExitOnError)
	common := registerCommon(fs)
	minAmount := fs.String("min", "", "最小持有量 (最小单位), 余额必须大于该值")
	showProgress := fs.Bool("progress", false, "打印进度")
	fs.Parse(args)

	if fs.NArg() != 3 {
		return fmt.Errorf("expected <tokenAddress> <tokenName> <deploymentBlock>, got %d arguments", fs.NArg())
	}
	deploymentBlock, err := strconv.ParseUint(fs.Arg(2), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid deployment block %q: %w", fs.Arg(2), err)
	}

	svcCtx := common.serviceContext()
	defer svcCtx.Close()

	var reporter progress.Reporter = progress.Nop
	if *showProgress {
		reporter = progress.NewLogReporter(ctx, 1)
	}

	resp, err := holder.NewHolderLogic(ctx, svcCtx).WithProgress(reporter).GetTokenHolders(&types.TokenHoldersReq{
		Chain:           *common.chain,
		TokenAddress:    fs.Arg(0),
		TokenName:       fs.Arg(1),
		DeploymentBlock: deploymentBlock,
		BlockNumber:     *common.block,
		MinTokenAmount:  *minAmount,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tBALANCE")
	for _, h := range resp.Holders {
		fmt.Fprintf(w, "%s\t%s\n", h.Address, h.Balance)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d holders at block %d\n", resp.Count, resp.EndBlock)
	if resp.RunId != "" {
		fmt.Printf("exported as run %s\n", resp.RunId)
	}
	return nil
}

func runBalance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get-balance", flag.ExitOnError)
	common := registerCommon(fs)
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("expected at least one address")
	}

	svcCtx := common.serviceContext()
	defer svcCtx.Close()

	resp, err := balance.NewBalanceLogic(ctx, svcCtx).GetBalance(&types.BalanceReq{
		Chain:       *common.chain,
		Addresses:   fs.Args(),
		BlockNumber: *common.block,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tBALANCE (WEI)\tBALANCE")
	for _, b := range resp.Balances {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Address, b.Balance, b.Formatted)
	}
	return w.Flush()
}
