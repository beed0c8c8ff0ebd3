package notify

import (
	"context"
	"log"
	"os/exec"
	"runtime"
)

// EnsurePermission 在 macOS 上触发一次系统通知以引导用户授予通知权限；
// 其他平台为 no-op。失败只记日志。
func EnsurePermission(ctx context.Context) {
	if runtime.GOOS != "darwin" {
		return
	}
	script := `display notification "监控已启动" with title "Baize"`
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		log.Printf("[baize] notification permission probe: %v", err)
	}
}
