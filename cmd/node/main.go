package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xchain/v1/internal/app"
	apiconfig "github.com/xchain/v1/internal/config/api"
)

const version = "1.0.0"

var (
	apiAddr    string
	apiEnabled bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "xchain-node",
	Short: "跨链执行交付节点",
	Long: `xchain-node 跨链执行交付节点

负责跨链事务的全生命周期编排:
- 接收跨链事务并拆分副作用步骤
- 执行者竞价与保证金托管
- 基于轻客户端的包含证明确认
- 托管结算、回滚与轮次领取`,
	RunE: func(cmd *cobra.Command, args []string) error {
		node := app.New(&app.Options{
			API: &apiconfig.APIOptions{Enabled: apiEnabled, Addr: apiAddr},
		})
		node.Run()
		return nil
	},
}

// versionCmd 版本命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("xchain-node v%s\n", version)
	},
}

func init() {
	rootCmd.Flags().StringVar(&apiAddr, "api-addr", ":8545", "查询服务监听地址")
	rootCmd.Flags().BoolVar(&apiEnabled, "api", true, "是否启用查询服务")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "启动失败: %v\n", err)
		os.Exit(1)
	}
}
