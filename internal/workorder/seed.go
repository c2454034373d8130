package workorder

import "time"

func strPtr(s string) *string { return &s }

// SeedDemoData loads the two demonstration work orders shipped with
// the product: a welding order with partial progress and a live
// customer credential, and a packaging order whose credential has
// already been confirmed. It is a no-op when the store is not empty.
func (m *Manager) SeedDemoData() error {
	if !m.store.IsEmpty() {
		return nil
	}

	now := m.clock()
	baseStart := now.Add(-2 * time.Hour)
	baseEnd := now.Add(2 * 24 * time.Hour)
	weldingEstimate := now.Add(2 * time.Hour)

	welding := m.Create(CreateInput{
		Code:           "WO-240401-001",
		Title:          "2304-电子组件焊接",
		Description:    strPtr("批次 2304 焊接作业，需 100 件，检测 NG 自动推送采购。"),
		OwnerID:        "manager-001",
		OwnerName:      "王强",
		Priority:       PriorityHigh,
		StartAt:        baseStart,
		EndAt:          baseEnd,
		TargetQuantity: 100,
		Procurement: ProcurementPreference{
			AutoNotify:        true,
			TargetFactoryID:   strPtr("factory-001"),
			TargetFactoryName: strPtr("东莞启明电子"),
		},
		Watchers: []string{"王强", "李娜", "赵鹏"},
		Steps: []StepAssignment{
			{
				StepCode:              "step-1",
				StepName:              "焊接",
				AssigneeID:            "worker-001",
				AssigneeName:          "李娜",
				ExpectedQuantity:      100,
				EstimatedCompletionAt: &weldingEstimate,
			},
			{
				StepCode:         "step-2",
				StepName:         "品质检验",
				AssigneeID:       "qa-001",
				AssigneeName:     "赵鹏",
				ExpectedQuantity: 100,
			},
		},
	})

	if _, err := m.RecordProgress(welding.ID, "step-1", ProgressInput{Completed: 60, Defective: 2}); err != nil {
		return err
	}
	if _, err := m.CreateCustomerAccess(welding.ID, AccessInput{
		CustomerName: "华强客户",
		Company:      strPtr("华强电子"),
		ContactPhone: strPtr("13800008888"),
	}); err != nil {
		return err
	}

	packaging := m.Create(CreateInput{
		Code:           "WO-240402-001",
		Title:          "包装与出货",
		Description:    strPtr("确认包装材料准备就绪并生成送货单。"),
		OwnerID:        "manager-002",
		OwnerName:      "刘晨",
		Priority:       PriorityMedium,
		StartAt:        now.Add(12 * time.Hour),
		EndAt:          now.Add(5 * 24 * time.Hour),
		TargetQuantity: 200,
		Procurement:    ProcurementPreference{AutoNotify: false},
		Watchers:       []string{"刘晨", "陈思", "贺洋"},
		Steps: []StepAssignment{
			{
				StepCode:         "step-a",
				StepName:         "物料准备",
				AssigneeID:       "worker-010",
				AssigneeName:     "陈思",
				ExpectedQuantity: 200,
			},
			{
				StepCode:         "step-b",
				StepName:         "打包",
				AssigneeID:       "worker-011",
				AssigneeName:     "贺洋",
				ExpectedQuantity: 200,
			},
		},
	})

	withAccess, err := m.CreateCustomerAccess(packaging.ID, AccessInput{CustomerName: "星辰客户"})
	if err != nil {
		return err
	}
	confirmer := "王强"
	_, err = m.ConfirmCustomerAccess(packaging.ID, withAccess.CustomerAccess.ID, &confirmer)
	return err
}
