package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"postershelf/fetcher"
	"postershelf/shelf"
	"postershelf/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	fetchHeaders bool
	fetchBody    bool
	fetchJSON    bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Fetch a URL and describe the response",
	Long: `Fetch any URL and print the response status, content type and size.
Text bodies can be printed; image bodies are decoded and their dimensions shown.

Examples:
  postershelf fetch https://raw.githubusercontent.com/emilk/egui/master/README.md --body
  postershelf fetch https://picsum.photos/seed/42/640 --headers`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		s := shelf.New(cfg, nil)

		res, err := s.Fetch(cmd.Context(), args[0])
		if err != nil {
			logrus.Fatal(err)
		}

		if fetchJSON {
			if err := writeResourceJSON(os.Stdout, res); err != nil {
				logrus.Fatal(err)
			}
			return
		}
		writeResource(os.Stdout, res, fetchHeaders, fetchBody)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&fetchHeaders, "headers", false, "Print response headers")
	fetchCmd.Flags().BoolVar(&fetchBody, "body", false, "Print the body when it is text")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Output as JSON")
}

func writeResource(w io.Writer, res fetcher.Resource, headers, body bool) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "url:\t%s\n", res.URL)
	fmt.Fprintf(tw, "status:\t%s\n", res.Status)
	fmt.Fprintf(tw, "content-type:\t%s\n", res.ContentType)
	fmt.Fprintf(tw, "size:\t%s\n", utils.FormatSize(int64(res.Size)))
	switch {
	case res.Image != nil:
		fmt.Fprintf(tw, "image:\t%dx%d RGBA (%s decoded)\n", res.Image.Width, res.Image.Height, utils.FormatSize(int64(res.Image.Bytes())))
	case res.DecodeErr != nil:
		fmt.Fprintf(tw, "image:\tundecodable (%v)\n", res.DecodeErr)
	case !res.IsText:
		fmt.Fprintf(tw, "body:\t[binary]\n")
	}
	if headers {
		for _, h := range res.Headers {
			fmt.Fprintf(tw, "%s:\t%s\n", h.Name, h.Value)
		}
	}
	tw.Flush()

	if body && res.IsText {
		fmt.Fprintln(w)
		fmt.Fprintln(w, res.Text)
	}
}

func writeResourceJSON(w io.Writer, res fetcher.Resource) error {
	out := struct {
		URL         string            `json:"url"`
		StatusCode  int               `json:"status"`
		ContentType string            `json:"contentType"`
		Size        int               `json:"size"`
		Headers     map[string]string `json:"headers"`
		Text        string            `json:"text,omitempty"`
		ImageWidth  int               `json:"imageWidth,omitempty"`
		ImageHeight int               `json:"imageHeight,omitempty"`
		DecodeError string            `json:"decodeError,omitempty"`
	}{
		URL:         res.URL,
		StatusCode:  res.StatusCode,
		ContentType: res.ContentType,
		Size:        res.Size,
		Headers:     map[string]string{},
		Text:        res.Text,
	}
	for _, h := range res.Headers {
		out.Headers[h.Name] = h.Value
	}
	if res.Image != nil {
		out.ImageWidth, out.ImageHeight = res.Image.Width, res.Image.Height
	}
	if res.DecodeErr != nil {
		out.DecodeError = res.DecodeErr.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
