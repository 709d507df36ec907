// atsmatch 命令行工具：离线运行简历与岗位描述匹配，或校验词表文件。
package main

import (
	"os"

	"ats-match-go/cmd/atsmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
