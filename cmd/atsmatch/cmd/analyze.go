package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"ats-match-go/internal/engine"

	"github.com/spf13/cobra"
)

var (
	resumePath string
	jobPath    string
	pretty     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a resume against a job description",
	Long:  "Reads plain-text resume and job description files (\"-\" for stdin) and prints the match result as JSON.",
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if resumePath == "-" && jobPath == "-" {
		return fmt.Errorf("--resume 和 --job 不能同时读取标准输入")
	}
	resume, err := readInput(cmd.InOrStdin(), resumePath)
	if err != nil {
		return err
	}
	job, err := readInput(cmd.InOrStdin(), jobPath)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	result, err := eng.Analyze(ctx, resume, job)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("读取标准输入失败: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取文件 %s 失败: %w", path, err)
	}
	return string(data), nil
}

func init() {
	analyzeCmd.Flags().StringVarP(&resumePath, "resume", "r", "", "Resume text file, or - for stdin")
	analyzeCmd.Flags().StringVarP(&jobPath, "job", "j", "", "Job description text file, or - for stdin")
	analyzeCmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	_ = analyzeCmd.MarkFlagRequired("resume")
	_ = analyzeCmd.MarkFlagRequired("job")
}
