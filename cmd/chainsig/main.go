// Package main provides the chainsig CLI tool for checking wallet key
// derivations and assembling distributed signer signatures.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/charmbracelet/lipgloss"
	"github.com/complex-gh/chainsig"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"
	"go.uber.org/zap"
	"golang.org/x/term"
	lang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	maxWidth = 72
)

var (
	baseStyle  = lipgloss.NewStyle().Margin(0, 0, 1, 2) //nolint:mnd
	red        = lipgloss.Color(completeColor("#FF4444", "196", "9"))
	errorStyle = baseStyle.
			Foreground(red).
			Background(lipgloss.AdaptiveColor{Light: completeColor("#FFEBEB", "255", "7"), Dark: completeColor("#2B1A1A", "235", "8")}).
			Padding(1, 2) //nolint:mnd

	network       string
	verbose       bool
	scriptTypeStr string
	rpcConfig     = chainsig.RPCConfigFromEnv()

	all        bool
	der        bool
	hashHex    string
	mnemonic   string
	askPass    bool
	language   string
	entropyLen int

	rootCmd = &cobra.Command{
		Use:   "chainsig",
		Short: "Check wallet key derivations and assemble MPC signatures",
		Long: `Check that the addresses of a bitcoind descriptor wallet are reproducible
from its master key, and rebuild compact ECDSA signatures from the big_r and s
components returned by a distributed signer.

Input files may be "-" to read from stdin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	masterCmd = &cobra.Command{
		Use:   "master <descriptors.json>",
		Short: "Show the master key of a listdescriptors response",
		Example: `  bitcoin-cli -regtest listdescriptors true > descriptors.json
  chainsig master descriptors.json --type segwit`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			net, t, err := networkAndType()
			if err != nil {
				return err
			}
			master, err := loadMasterKey(args[0], t, net)
			if err != nil {
				return err
			}

			xpub, err := master.ExtendedPublicKey()
			if err != nil {
				return err
			}
			fp, err := master.Fingerprint()
			if err != nil {
				return err
			}

			fmt.Printf("Type:        %s\n", master.ScriptType())
			fmt.Printf("Fingerprint: %s\n", hex.EncodeToString(fp[:]))
			fmt.Printf("Depth:       %d\n", master.Depth())
			fmt.Printf("Public key:  %s\n", xpub)
			return nil
		},
	}

	deriveCmd = &cobra.Command{
		Use:     "derive <descriptors.json> <path>",
		Short:   "Derive the public key and address at a path",
		Example: `  chainsig derive descriptors.json "m/84'/1'/0'/0/0" --type segwit`,
		Args:    cobra.ExactArgs(2), //nolint:mnd
		RunE: func(_ *cobra.Command, args []string) error {
			net, t, err := networkAndType()
			if err != nil {
				return err
			}
			derived, err := deriveFromFile(args[0], args[1], t, net)
			if err != nil {
				return err
			}

			addr, err := derived.Address(net)
			if err != nil {
				return err
			}
			fmt.Printf("Path:    %s\n", derived.Path)
			fmt.Printf("Pubkey:  %s\n", derived.PubKeyHex())
			fmt.Printf("Address: %s\n", addr.EncodeAddress())
			return nil
		},
	}

	verifyCmd = &cobra.Command{
		Use:   "verify <descriptors.json> <addressinfo.json>",
		Short: "Verify a getaddressinfo response against the wallet master key",
		Example: `  bitcoin-cli -regtest getaddressinfo bcrt1q... > info.json
  chainsig verify descriptors.json info.json --type segwit`,
		Args: cobra.ExactArgs(2), //nolint:mnd
		RunE: func(_ *cobra.Command, args []string) error {
			net, t, err := networkAndType()
			if err != nil {
				return err
			}

			bts, err := readInput(args[1])
			if err != nil {
				return err
			}
			var info chainsig.AddressInfo
			if err := decodeJSON(bts, &info); err != nil {
				return fmt.Errorf("could not parse address info: %w", err)
			}

			derived, err := deriveFromFile(args[0], info.HDKeyPath, t, net)
			if err != nil {
				return err
			}
			if err := chainsig.VerifyAddressInfo(derived, &info, net); err != nil {
				return err
			}

			fmt.Printf("OK %s %s\n", info.Address, derived.Path)
			return nil
		},
	}

	accountCmd = &cobra.Command{
		Use:   "account",
		Short: "Create a node address and verify its derivation over RPC",
		Example: `  chainsig account --type segwit --rpc-host 127.0.0.1:18443
  BITCOIN_RPC_WALLET=miner chainsig account --type legacy`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			net, t, err := networkAndType()
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			cfg := rpcConfig
			cfg.Network = net.Name
			node, err := chainsig.NewRPCNode(cfg, log)
			if err != nil {
				return err
			}
			defer node.Shutdown()

			w, err := chainsig.NewWalletContext(node, net, log)
			if err != nil {
				return err
			}
			account, err := w.SetupAccount(t)
			if err != nil {
				return err
			}

			utxos, err := w.UnspentForAddress(account.Address)
			if err != nil {
				return err
			}

			fmt.Printf("Address:      %s\n", account.Address.EncodeAddress())
			fmt.Printf("Path:         %s\n", account.Path)
			fmt.Printf("Pubkey:       %s\n", hex.EncodeToString(account.PublicKey.SerializeCompressed()))
			fmt.Printf("ScriptPubKey: %s\n", hex.EncodeToString(account.ScriptPubKey))
			fmt.Printf("UTXOs:        %d\n", len(utxos))
			return nil
		},
	}

	assembleCmd = &cobra.Command{
		Use:   "assemble <big_r> <s>",
		Short: "Assemble a compact signature from hex components",
		Example: `  chainsig assemble 02<64 hex chars> <64 hex chars>
  chainsig assemble 03... ... --der
  chainsig assemble 03... ... --hash <sha256 hex>`,
		Args: cobra.ExactArgs(2), //nolint:mnd
		RunE: func(_ *cobra.Command, args []string) error {
			sig, err := chainsig.Assemble(args[0], args[1])
			if err != nil {
				return err
			}
			return printSignature(sig)
		},
	}

	extractCmd = &cobra.Command{
		Use:   "extract <outcome.json>",
		Short: "Extract signatures from a transaction execution outcome",
		Long: `Extract signatures from a transaction execution outcome.

By default the final status must be a success value carrying big_r and s.
With --all every receipt is searched and receipts without a signature are
skipped.`,
		Example: `  chainsig extract outcome.json
  cat outcome.json | chainsig extract - --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			bts, err := readInput(args[0])
			if err != nil {
				return err
			}
			var resp chainsig.TxResponse
			if err := decodeJSON(bts, &resp); err != nil {
				return fmt.Errorf("could not parse outcome: %w", err)
			}

			x := chainsig.NewExtractor(log)
			var components []chainsig.SignatureComponents
			if all {
				if resp.Outcome == nil {
					return chainsig.ErrNoSignaturesFound
				}
				components, err = x.ExtractAll(resp.Outcome)
			} else {
				var c chainsig.SignatureComponents
				c, err = x.ExtractResponse(&resp)
				components = []chainsig.SignatureComponents{c}
			}
			if err != nil {
				return err
			}

			sigs, err := chainsig.AssembleAll(components)
			if err != nil {
				return err
			}
			for _, sig := range sigs {
				if err := printSignature(sig); err != nil {
					return err
				}
			}
			return nil
		},
	}

	fixtureCmd = &cobra.Command{
		Use:   "fixture",
		Short: "Print a listdescriptors style fixture for a BIP39 mnemonic",
		Long: `Print a listdescriptors style fixture for a BIP39 mnemonic.

Without --mnemonic a new random mnemonic is generated and printed to stderr.
The output can be fed to the master, derive and verify commands.`,
		Example: `  chainsig fixture > descriptors.json
  chainsig fixture --mnemonic "abandon abandon ... about" --passphrase
  chainsig fixture --language japanese --words 24`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			net, err := chainsig.NetworkParams(network)
			if err != nil {
				return err
			}
			if err := setLanguage(language); err != nil {
				return err
			}

			words := mnemonic
			if words == "" {
				bits, err := entropyBits(entropyLen)
				if err != nil {
					return err
				}
				words, err = chainsig.NewMnemonic(bits)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(os.Stderr, words)
			}

			var pass string
			if askPass {
				p, err := readPassword("Enter BIP39 passphrase: ")
				if err != nil {
					return err
				}
				pass = string(p)
			}

			legacy, err := chainsig.MasterKeyFromMnemonic(words, pass, chainsig.Legacy, net)
			if err != nil {
				return err
			}
			segwit, err := chainsig.MasterKeyFromMnemonic(words, pass, chainsig.Segwit, net)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(chainsig.DescriptorList{
				WalletName:  "fixture",
				Descriptors: chainsig.DescriptorsFor(net, legacy, segwit),
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("could not encode fixture: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	manCmd = &cobra.Command{
		Use:          "man",
		Args:         cobra.NoArgs,
		Short:        "generate man pages",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			manPage, err := mcobra.NewManPage(1, rootCmd)
			if err != nil {
				//nolint: wrapcheck
				return err
			}
			manPage = manPage.WithSection("Copyright", "(C) 2025-2026 complex (complex@ft.hn)\n"+
				"See LICENSE for licensing information.")
			fmt.Println(manPage.Build(roff.NewDocument()))
			return nil
		},
	}

	// completionCmd generates shell completion scripts for bash, zsh, fish, and powershell.
	completionCmd = &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for chainsig.

To load completions:

Bash:
  $ source <(chainsig completion bash)

Zsh:
  $ chainsig completion zsh > "${fpath[1]}/_chainsig"

Fish:
  $ chainsig completion fish | source

PowerShell:
  PS> chainsig completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unknown shell: %s", args[0])
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&network, "network", "n", getEnvOrDefault("CHAINSIG_NETWORK", "regtest"), "Network: mainnet, testnet, signet or regtest")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVarP(&scriptTypeStr, "type", "t", "segwit", "Script type: legacy or segwit")

	accountCmd.Flags().StringVar(&rpcConfig.Host, "rpc-host", rpcConfig.Host, "bitcoind RPC host (BITCOIN_RPC_URL)")
	accountCmd.Flags().StringVar(&rpcConfig.User, "rpc-user", rpcConfig.User, "bitcoind RPC user (BITCOIN_RPC_USER)")
	accountCmd.Flags().StringVar(&rpcConfig.Pass, "rpc-pass", rpcConfig.Pass, "bitcoind RPC password (BITCOIN_RPC_PASSWORD)")
	accountCmd.Flags().StringVar(&rpcConfig.Wallet, "rpc-wallet", rpcConfig.Wallet, "bitcoind wallet name (BITCOIN_RPC_WALLET)")

	for _, cmd := range []*cobra.Command{assembleCmd, extractCmd} {
		cmd.Flags().BoolVar(&der, "der", false, "Also print the DER encoding")
		cmd.Flags().StringVar(&hashHex, "hash", "", "Message hash (hex) to recover the signing public key")
	}
	extractCmd.Flags().BoolVar(&all, "all", false, "Search every receipt, skipping those without a signature")

	fixtureCmd.Flags().StringVar(&mnemonic, "mnemonic", "", "BIP39 mnemonic (random if empty)")
	fixtureCmd.Flags().BoolVar(&askPass, "passphrase", false, "Prompt for a BIP39 passphrase")
	fixtureCmd.Flags().StringVarP(&language, "language", "l", "en", "Mnemonic language")
	fixtureCmd.Flags().IntVarP(&entropyLen, "words", "w", 12, "Word count of a generated mnemonic: 12, 15, 18, 21 or 24") //nolint:mnd

	rootCmd.AddCommand(masterCmd, deriveCmd, verifyCmd, accountCmd, assembleCmd, extractCmd, fixtureCmd)
	rootCmd.AddCommand(manCmd)
	rootCmd.AddCommand(completionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func networkAndType() (*chaincfg.Params, chainsig.ScriptType, error) {
	net, err := chainsig.NetworkParams(network)
	if err != nil {
		return nil, 0, err
	}
	t, err := chainsig.ParseScriptType(scriptTypeStr)
	if err != nil {
		return nil, 0, err
	}
	return net, t, nil
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}
	return log, nil
}

func openFileOrStdin(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}

	// G304: path is user-provided input, which is expected for a CLI tool
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	return f, nil
}

func readInput(path string) ([]byte, error) {
	f, err := openFileOrStdin(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	bts, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return bts, nil
}

// decodeJSON decodes bts into v, unwrapping a JSON-RPC envelope when the
// input is a raw RPC response.
func decodeJSON(bts []byte, v any) error {
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(bts, &envelope); err == nil && len(envelope.Result) > 0 && !bytes.Equal(envelope.Result, []byte("null")) {
		bts = envelope.Result
	}
	//nolint: wrapcheck
	return json.Unmarshal(bts, v)
}

// readDescriptors accepts a full listdescriptors response or a bare array of
// descriptor records.
func readDescriptors(path string) ([]chainsig.Descriptor, error) {
	bts, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var list chainsig.DescriptorList
	if err := decodeJSON(bts, &list); err == nil {
		return list.Descriptors, nil
	}
	var descriptors []chainsig.Descriptor
	if err := decodeJSON(bts, &descriptors); err != nil {
		return nil, fmt.Errorf("could not parse descriptors: %w", err)
	}
	return descriptors, nil
}

func loadMasterKey(path string, t chainsig.ScriptType, net *chaincfg.Params) (*chainsig.MasterKey, error) {
	descriptors, err := readDescriptors(path)
	if err != nil {
		return nil, err
	}
	//nolint: wrapcheck
	return chainsig.MasterKeyFromDescriptors(descriptors, t, net)
}

func deriveFromFile(descriptorsPath, pathStr string, t chainsig.ScriptType, net *chaincfg.Params) (*chainsig.DerivedKeyPair, error) {
	master, err := loadMasterKey(descriptorsPath, t, net)
	if err != nil {
		return nil, err
	}
	path, err := chainsig.ParsePath(pathStr)
	if err != nil {
		return nil, err
	}
	//nolint: wrapcheck
	return chainsig.Derive(master, path)
}

func printSignature(sig *chainsig.CompactSignature) error {
	fmt.Println(sig.Hex())
	if der {
		fmt.Printf("DER: %s\n", hex.EncodeToString(sig.Signature().Serialize()))
	}
	if hashHex != "" {
		hash, err := hex.DecodeString(hashHex)
		if err != nil {
			return fmt.Errorf("could not decode hash: %w", err)
		}
		pub, err := sig.RecoverPubKey(hash)
		if err != nil {
			return err
		}
		fmt.Printf("Public key: %s\n", hex.EncodeToString(pub.SerializeCompressed()))
	}
	return nil
}

func getWidth(maxw int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint: gosec
	if err != nil || w > maxw {
		return maxWidth
	}
	return w
}

func renderBlock(w io.Writer, s lipgloss.Style, width int, str string) {
	_, _ = io.WriteString(w, s.Width(width).Render(str))
	_, _ = io.WriteString(w, "\n")
}

// printError shows err in a styled block on a terminal, and as a plain line
// otherwise. Derivation mismatches get a heading so they stand out from I/O
// errors.
func printError(err error) {
	msg := err.Error()
	if errors.Is(err, chainsig.ErrDerivationMismatch) {
		msg = "Derivation mismatch\n\n" + msg
	}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		b := strings.Builder{}
		w := getWidth(maxWidth)

		b.WriteRune('\n')
		renderBlock(&b, errorStyle, w, msg)
		b.WriteRune('\n')

		_, _ = fmt.Fprint(os.Stderr, b.String())
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
}

func completeColor(truecolor, ansi256, ansi string) string {
	//nolint: exhaustive
	switch lipgloss.ColorProfile() {
	case termenv.TrueColor:
		return truecolor
	case termenv.ANSI256:
		return ansi256
	}
	return ansi
}

// entropyBits maps a BIP39 word count to its entropy size.
// Valid word counts are: 12, 15, 18, 21, or 24.
func entropyBits(words int) (int, error) {
	validCounts := map[int]bool{12: true, 15: true, 18: true, 21: true, 24: true}
	if !validCounts[words] {
		return 0, fmt.Errorf("invalid word count %d: must be one of 12, 15, 18, 21, 24", words)
	}
	return words / 3 * 32, nil //nolint:mnd
}

// setLanguage sets the language of the bip39 mnemonic seed.
func setLanguage(language string) error {
	list := getWordlist(language)
	if list == nil {
		return fmt.Errorf("this language is not supported")
	}
	bip39.SetWordList(list)
	return nil
}

func sanitizeLang(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

var wordLists = map[lang.Tag][]string{
	lang.Chinese:              wordlists.ChineseSimplified,
	lang.SimplifiedChinese:    wordlists.ChineseSimplified,
	lang.TraditionalChinese:   wordlists.ChineseTraditional,
	lang.Czech:                wordlists.Czech,
	lang.AmericanEnglish:      wordlists.English,
	lang.BritishEnglish:       wordlists.English,
	lang.English:              wordlists.English,
	lang.French:               wordlists.French,
	lang.Italian:              wordlists.Italian,
	lang.Japanese:             wordlists.Japanese,
	lang.Korean:               wordlists.Korean,
	lang.Spanish:              wordlists.Spanish,
	lang.EuropeanSpanish:      wordlists.Spanish,
	lang.LatinAmericanSpanish: wordlists.Spanish,
}

func getWordlist(language string) []string {
	language = sanitizeLang(language)
	tag := lang.Make(language)
	en := display.English.Languages() // default language name matcher
	for t := range wordLists {
		if sanitizeLang(en.Name(t)) == language {
			tag = t
			break
		}
	}
	if tag == lang.Und { // Unknown language
		return nil
	}
	base, _ := tag.Base()
	btag := lang.MustParse(base.String())
	wl := wordLists[tag]
	if wl == nil {
		return wordLists[btag]
	}
	return wl
}

func readPassword(msg string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, msg)
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open tty: %w", err)
	}
	defer t.Close()                                     //nolint: errcheck
	pass, err := term.ReadPassword(int(t.Input().Fd())) //nolint: gosec
	if err != nil {
		return nil, fmt.Errorf("could not read passphrase: %w", err)
	}
	_, _ = fmt.Fprintln(os.Stderr)
	return pass, nil
}
