package license

// Tier names a license plan bounding seats and feature coverage.
type Tier string

const (
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// Plan is one entry of the static subscription catalog.
type Plan struct {
	Tier               Tier     `json:"tier"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	PricePerQuarter    int      `json:"price_per_quarter"`
	PricePerYear       int      `json:"price_per_year"`
	MaxSeats           int      `json:"max_seats"`
	OCRCredits         int      `json:"ocr_credits"`
	AutomationCoverage string   `json:"automation_coverage"`
	Features           []string `json:"features"`
}

// plans is the immutable tier catalog. Prices are CNY.
var plans = []Plan{
	{
		Tier:               TierStarter,
		Name:               "云启版",
		Description:        "适合 15 人以下小微工厂的入门套餐",
		PricePerQuarter:    899,
		PricePerYear:       2999,
		MaxSeats:           15,
		OCRCredits:         2000,
		AutomationCoverage: "工单流转 + 采购提醒 + OCR 品质预览",
		Features: []string{
			"桌面端 / 安卓端互通",
			"OCR 质检自动录入",
			"闪电工单与采购通知",
		},
	},
	{
		Tier:               TierProfessional,
		Name:               "智控版",
		Description:        "覆盖多班组协同与成本对账的成长型套餐",
		PricePerQuarter:    1899,
		PricePerYear:       5999,
		MaxSeats:           40,
		OCRCredits:         6000,
		AutomationCoverage: "原材采购 + 产能平衡 + 对账单自动生成",
		Features: []string{
			"多角色权限与流程编排",
			"自动补料与返工追踪",
			"送货单 / 对账单一键导出",
		},
	},
	{
		Tier:               TierEnterprise,
		Name:               "旗舰版",
		Description:        "面向集团化工厂的全流程自动化方案",
		PricePerQuarter:    3299,
		PricePerYear:       10999,
		MaxSeats:           120,
		OCRCredits:         18000,
		AutomationCoverage: "跨厂区协同 + BI 指标看板 + 定制集成",
		Features: []string{
			"跨区域协同与多工厂调度",
			"供应链 API / ERP 对接",
			"专属顾问与季度巡检",
		},
	},
}

// Plans returns a copy of the static plan catalog.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	for i := range out {
		out[i].Features = append([]string(nil), plans[i].Features...)
	}
	return out
}

func planByTier(tier Tier) (Plan, bool) {
	for _, plan := range plans {
		if plan.Tier == tier {
			return plan, true
		}
	}
	return Plan{}, false
}
