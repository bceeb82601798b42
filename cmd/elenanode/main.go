package main

// main.go is the node's CLI entrypoint: a cobra root carrying the
// persistent `-d/--data-dir`, `-l/--listen`, `-p/--peers` flags plus the
// `run`, `wallet`, `send`, `stats`, `pubkey` and `stake` subcommands. A
// sync.Once bootstraps .env loading and log-level configuration once per
// process before any subcommand runs.

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"elena-node/core"
	"elena-node/pkg/config"
)

var (
	logger = logrus.StandardLogger()
	once   sync.Once

	flagDataDir string
	flagListen  string
	flagPeers   []string
)

func initMiddleware(cmd *cobra.Command, _ []string) error {
	var err error
	once.Do(func() {
		_ = godotenv.Load()
		lvl := os.Getenv("LOG_LEVEL")
		if lvl == "" {
			lvl = "info"
		}
		l, e := logrus.ParseLevel(lvl)
		if e != nil {
			err = e
			return
		}
		logger.SetLevel(l)
	})
	return err
}

func main() {
	root := &cobra.Command{
		Use:               "elenanode",
		Short:             "Elena: a post-quantum DAG payment network node",
		PersistentPreRunE: initMiddleware,
	}
	root.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "./data", "node data directory")
	root.PersistentFlags().StringVarP(&flagListen, "listen", "l", "/ip4/0.0.0.0/tcp/4001", "gossip listen multiaddress")
	root.PersistentFlags().StringSliceVarP(&flagPeers, "peers", "p", nil, "bootstrap peer multiaddresses")

	root.AddCommand(runCmd(), walletCmd(), sendCmd(), statsCmd(), pubkeyCmd(), stakeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

//---------------------------------------------------------------------
// run
//---------------------------------------------------------------------

func runCmd() *cobra.Command {
	var (
		balance          uint64
		wallet           string
		admin            string
		emissionInterval int
		enableChaff      bool
		chaffProb        float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the node's event loop, gossip transport and admin server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}

			// config/default.yaml (and any ELENA_ENV override) supplies
			// defaults; explicit flags always win over them.
			if !cmd.Flags().Changed("data-dir") && cfg.Node.DataDir != "" {
				flagDataDir = cfg.Node.DataDir
			}
			if !cmd.Flags().Changed("listen") && cfg.Network.ListenAddr != "" {
				flagListen = cfg.Network.ListenAddr
			}
			if !cmd.Flags().Changed("peers") && len(cfg.Network.BootstrapPeers) > 0 {
				flagPeers = cfg.Network.BootstrapPeers
			}
			if !cmd.Flags().Changed("wallet") && cfg.Node.WalletName != "" {
				wallet = cfg.Node.WalletName
			}
			if !cmd.Flags().Changed("balance") && cfg.Node.InitBalance != 0 {
				balance = cfg.Node.InitBalance
			}
			if !cmd.Flags().Changed("admin") && cfg.Admin.ListenAddr != "" {
				admin = cfg.Admin.ListenAddr
			}
			if !cmd.Flags().Changed("emission-interval") && cfg.Node.EmissionSecs != 0 {
				emissionInterval = cfg.Node.EmissionSecs
			}
			if !cmd.Flags().Changed("enable-chaff") {
				enableChaff = cfg.Node.EnableChaff
			}
			if !cmd.Flags().Changed("chaff-prob") && cfg.Node.ChaffProb != 0 {
				chaffProb = cfg.Node.ChaffProb
			}
			if lvl, lerr := logrus.ParseLevel(cfg.Logging.Level); lerr == nil {
				logger.SetLevel(lvl)
			}

			kp, err := core.LoadOrCreateKeypair(core.KeyPath(flagDataDir, wallet))
			if err != nil {
				return err
			}

			transport, err := core.NewLibP2PTransport(core.TransportConfig{
				ListenAddr:     flagListen,
				BootstrapPeers: flagPeers,
				DiscoveryTag:   cfg.Network.DiscoveryTag,
			})
			if err != nil {
				return err
			}

			log := logrus.NewEntry(logger)

			node, err := core.NewNodeFromDisk(core.NodeConfig{
				Keypair:     kp,
				InitBalance: balance,
				DataDir:     flagDataDir,
				Transport:   transport,
				EnableChaff: enableChaff,
				ChaffProb:   chaffProb,
				Logger:      log,
			})
			if err != nil {
				return err
			}

			adminSrv, err := core.NewAdminServer(admin, node, log)
			if err != nil {
				return err
			}
			go adminSrv.Serve()
			defer adminSrv.Close()

			if emissionInterval > 0 {
				go core.RunEmissionTimer(node, time.Duration(emissionInterval)*time.Second, log)
			}

			log.WithFields(logrus.Fields{
				"peer_id": node.PeerID().String(),
				"admin":   admin,
			}).Info("elena node started")

			node.Run()
			return nil
		},
	}

	cmd.Flags().Uint64Var(&balance, "balance", 0, "starting balance in micro-units; the balance is not persisted, so this applies on every start")
	cmd.Flags().StringVar(&wallet, "wallet", "default", "wallet name under data-dir/wallets")
	cmd.Flags().StringVar(&admin, "admin", "127.0.0.1:7700", "admin control channel listen address")
	cmd.Flags().IntVar(&emissionInterval, "emission-interval", 0, "emission timer interval in seconds, 0 disables")
	cmd.Flags().BoolVar(&enableChaff, "enable-chaff", false, "mark a random fraction of outbound payments as chaff")
	cmd.Flags().Float64Var(&chaffProb, "chaff-prob", 0.0, "probability [0,1] of marking an outbound payment as chaff")
	return cmd
}

//---------------------------------------------------------------------
// wallet <name>
//---------------------------------------------------------------------

func walletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wallet <name>",
		Short: "create or show a wallet keypair under data-dir/wallets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := core.LoadOrCreateKeypair(core.KeyPath(flagDataDir, args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "peer_id: %s\n", kp.Public.PeerID().String())
			fmt.Fprintf(cmd.OutOrStdout(), "pubkey:  %s\n", kp.Public.Hex())
			return nil
		},
	}
}

//---------------------------------------------------------------------
// admin-channel subcommands: send, stats, pubkey, stake
//---------------------------------------------------------------------

func dialAdmin(addr, line string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return "", fmt.Errorf("%w: dial admin %s: %v", core.ErrIO, addr, err)
	}
	defer conn.Close()
	if _, err := fmt.Fprintln(conn, line); err != nil {
		return "", fmt.Errorf("%w: write admin request: %v", core.ErrIO, err)
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: read admin response: %v", core.ErrIO, err)
	}
	return resp, nil
}

func sendCmd() *cobra.Command {
	var (
		to     string
		amount uint64
		admin  string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "submit a payment via the admin channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := dialAdmin(admin, fmt.Sprintf("send %s %d", to, amount))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient public key, hex encoded")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount in micro-units")
	cmd.Flags().StringVar(&admin, "admin", "127.0.0.1:7700", "admin control channel address")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func statsCmd() *cobra.Command {
	var admin string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "print node stats via the admin channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := dialAdmin(admin, "stats")
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "127.0.0.1:7700", "admin control channel address")
	return cmd
}

func pubkeyCmd() *cobra.Command {
	var admin string
	cmd := &cobra.Command{
		Use:   "pubkey",
		Short: "print the node's public key via the admin channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := dialAdmin(admin, "pubkey")
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "127.0.0.1:7700", "admin control channel address")
	return cmd
}

func stakeCmd() *cobra.Command {
	var (
		amount string
		admin  string
	)
	cmd := &cobra.Command{
		Use:   "stake",
		Short: "set the node's staking fraction via the admin channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseFloat(amount, 64); err != nil {
				return fmt.Errorf("%w: invalid --amount: %v", core.ErrInvalidArgument, err)
			}
			resp, err := dialAdmin(admin, fmt.Sprintf("stake %s", amount))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "0.0", "staking fraction in [0.0, 0.5]")
	cmd.Flags().StringVar(&admin, "admin", "127.0.0.1:7700", "admin control channel address")
	return cmd
}
