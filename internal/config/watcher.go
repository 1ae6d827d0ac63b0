package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

// StartWatch 监听配置中心变更，变更时回调 onChange(old, new)。
// 仅 Nacos 来源支持热更新；etcd/本地文件来源启动后配置固定
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) == "" {
		fmt.Println("[Config] Nacos 未配置，跳过配置监听")
		return nil
	}
	return startNacosWatch(ctx, onChange)
}

// startNacosWatch 启动 Nacos 配置监听
func startNacosWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	s, err := nacosSettingsFromEnv()
	if err != nil {
		return err
	}

	configClient, err := newNacosClient(s)
	if err != nil {
		return fmt.Errorf("failed to create nacos config client for watch: %w", err)
	}
	nacosConfigClient = configClient

	err = configClient.ListenConfig(vo.ConfigParam{
		DataId: s.dataID,
		Group:  s.group,
		OnChange: func(namespace, group, dataId, data string) {
			fmt.Printf("[Config] Nacos 配置变更: namespace=%s, group=%s, dataId=%s\n",
				namespace, group, dataId)

			newCfg, parseErr := decodeConfig(dataId, []byte(data))
			if parseErr != nil {
				// 解析失败保持旧配置，等待下一次推送
				fmt.Printf("[Config] 解析 Nacos 配置失败: error=%v\n", parseErr)
				return
			}

			oldCfg := GetCurrent()
			SetCurrent(newCfg)

			if onChange != nil {
				onChange(oldCfg, newCfg)
			}

			fmt.Println("[Config] Nacos 配置已更新")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	fmt.Printf("[Config] Nacos 配置监听已启动: dataId=%s, namespace=%s, group=%s\n",
		s.dataID, s.namespace, s.group)

	return nil
}
