package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peerbadge/badges/src/config"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/service"
	"github.com/peerbadge/badges/src/store/grpcstore"
	"github.com/spf13/cobra"
)

// apiClient talks to the HTTP service of a running node.
type apiClient struct {
	base   string
	client *http.Client
}

func newAPIClient(addr string, timeout time.Duration) *apiClient {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &apiClient{
		base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// apiError is a failed request, as reported by the service.
type apiError struct {
	status int
	res    service.ErrorResponse
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%s (%d): %s", e.res.Error, e.status, e.res.Message)
	if e.res.Required != nil && e.res.Actual != nil {
		msg += fmt.Sprintf(" [required %d, got %d]", *e.res.Required, *e.res.Actual)
	}
	return msg
}

func (c *apiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{status: res.StatusCode}
		if err := json.NewDecoder(res.Body).Decode(&apiErr.res); err != nil {
			apiErr.res.Error = http.StatusText(res.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

type clientFlags struct {
	service string
	timeout time.Duration
}

func (f *clientFlags) add(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.service, "service", config.DefaultServiceAddr, "IP:Port of the node HTTP service")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", config.DefaultResponseTimeout, "Request timeout")
}

func (f *clientFlags) client() *apiClient {
	return newAPIClient(f.service, f.timeout)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

/*******************************************************************************
* CLASS
*******************************************************************************/

// NewClassCmd groups the badge class commands.
func NewClassCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "class",
		Short: "Create and inspect badge classes",
	}
	flags.add(cmd)

	cmd.AddCommand(newClassCreateCmd(flags), newClassQuorumCmd(flags))
	return cmd
}

func newClassCreateCmd(flags *clientFlags) *cobra.Command {
	req := service.CreateClassRequest{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a badge class authored by the node's agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Name == "" {
				return fmt.Errorf("--name is required")
			}
			var res service.AddressResponse
			if err := flags.client().do(http.MethodPost, "/classes", req, &res); err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Name of the badge")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description of the badge")
	cmd.Flags().StringVar(&req.Image, "image", "", "Image of the badge")
	cmd.Flags().IntVar(&req.Validators, "validators", 1, "Number of claims needed to assert the badge")
	cmd.Flags().BoolVar(&req.SelfAssert, "self-assert", false, "Also assert the badge for the creator")

	return cmd
}

func newClassQuorumCmd(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "quorum <class>",
		Short: "Show how far the node's agent is from asserting a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res service.QuorumResponse
			if err := flags.client().do(http.MethodGet, "/classes/"+url.PathEscape(args[0])+"/quorum", nil, &res); err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

// NewClassesCmd lists badge classes, optionally only those of one creator.
func NewClassesCmd() *cobra.Command {
	flags := &clientFlags{}
	var creator string

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List badge classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/classes"
			if creator != "" {
				path = "/agents/" + url.PathEscape(creator) + "/classes"
			}
			var res service.AddressesResponse
			if err := flags.client().do(http.MethodGet, path, nil, &res); err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	flags.add(cmd)
	cmd.Flags().StringVar(&creator, "creator", "", "Only list the classes created by this agent")

	return cmd
}

/*******************************************************************************
* CLAIM
*******************************************************************************/

// NewClaimCmd groups the claim commands.
func NewClaimCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Issue and accept badge claims",
	}
	flags.add(cmd)

	cmd.AddCommand(newClaimIssueCmd(flags), newClaimAcceptCmd(flags))
	return cmd
}

func newClaimIssueCmd(flags *clientFlags) *cobra.Command {
	var recipient, class string
	var evidences []string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Claim that an agent deserves a badge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if recipient == "" || class == "" {
				return fmt.Errorf("--recipient and --class are required")
			}
			req := service.ClaimRequest{
				Recipient: entry.AgentRef(recipient),
				Class:     entry.Address(class),
			}
			for _, e := range evidences {
				req.Evidences = append(req.Evidences, entry.Address(e))
			}
			var res service.AddressResponse
			if err := flags.client().do(http.MethodPost, "/claims", req, &res); err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().StringVar(&recipient, "recipient", "", "Agent receiving the badge")
	cmd.Flags().StringVar(&class, "class", "", "Address of the badge class")
	cmd.Flags().StringSliceVar(&evidences, "evidence", nil, "Address of an evidence entry. Repeatable")

	return cmd
}

func newClaimAcceptCmd(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <claim>",
		Short: "Copy a claim made out to the node's agent into its chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res service.AddressResponse
			if err := flags.client().do(http.MethodPost, "/claims/"+url.PathEscape(args[0])+"/accept", nil, &res); err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

/*******************************************************************************
* ASSERT
*******************************************************************************/

// NewAssertCmd asserts that the node's agent holds a badge.
func NewAssertCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "assert <class>",
		Short: "Assert that the node's agent holds a badge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res service.AddressResponse
			if err := flags.client().do(http.MethodPost, "/classes/"+url.PathEscape(args[0])+"/assert", nil, &res); err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	flags.add(cmd)

	return cmd
}

/*******************************************************************************
* GET
*******************************************************************************/

// NewGetCmd fetches an entry from the gRPC entry service of a node. The entry
// is checked against its address before it is printed.
func NewGetCmd() *cobra.Command {
	var remote string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "get <address>",
		Short: "Fetch an entry by address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := grpcstore.Dial(remote, grpcstore.DialOptions{Timeout: timeout})
			if err != nil {
				return err
			}
			defer cli.Close()

			addr := entry.Address(args[0])
			e, err := cli.GetEntry(addr)
			if err != nil {
				return err
			}

			return printJSON(cmd, service.EntryResponse{
				Address: addr,
				Kind:    e.Kind().String(),
				Entry:   e,
			})
		},
	}

	cmd.Flags().StringVar(&remote, "remote", config.DefaultGRPCAddr, "IP:Port of the gRPC entry service")
	cmd.Flags().DurationVar(&timeout, "timeout", config.DefaultResponseTimeout, "Request timeout")

	return cmd
}
