package models

// Finding 表示单个分析器产出的一条发现。
// 各分析器共用同一结构；Evidence 存放分析器特有的补充信息
// （如 plist 意图画像与二进制能力画像的对照文本）。
type Finding struct {
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Severity    Severity          `json:"severity"`
	RiskPoints  int               `json:"risk_points"`
	Technique   string            `json:"technique,omitempty"` // MITRE ATT&CK 技术编号，仅作参考标注
	Evidence    map[string]string `json:"evidence,omitempty"`
}
