package models

// MonitorPhase 监控器状态机阶段（封闭枚举）。
type MonitorPhase int

const (
	// PhaseStopped 已停止；Start 的合法起点。
	PhaseStopped MonitorPhase = iota
	// PhaseStarting 启动中：建基线、挂 watcher。
	PhaseStarting
	// PhaseRunning 运行中。
	PhaseRunning
	// PhaseStopping 停止中：先取消全部去抖定时器再摘 watcher。
	PhaseStopping
	// PhaseError 启动失败；仅可通过再次 Start 恢复。
	PhaseError
)

// String 返回阶段名。
func (p MonitorPhase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// MonitorState 监控器状态快照；仅由 orchestrator 变更，对外可观察。
type MonitorState struct {
	Phase MonitorPhase `json:"phase"`
	Err   string       `json:"error,omitempty"` // Phase == PhaseError 时的失败原因
}
