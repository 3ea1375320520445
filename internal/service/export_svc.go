package service

import (
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/feishu"
)

const exportSheet = "商品"

// ExportXLSX 把装配结果落成 Excel，一行一个商品、列序与目标字段一致
// dry-run 走查用，不触发任何远端写入
func ExportXLSX(path string, records []feishu.Record) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("[Export] 关闭工作簿失败: %v", err)
		}
	}()

	sheet, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("创建工作表失败: %v", err)
	}
	f.SetActiveSheet(sheet)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("删除默认工作表失败: %v", err)
	}

	header := make([]any, len(model.AllFields))
	for i, field := range model.AllFields {
		header[i] = field
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("写表头失败: %v", err)
	}

	for i, rec := range records {
		row := make([]any, len(model.AllFields))
		for j, field := range model.AllFields {
			row[j] = feishu.FieldText(rec.Fields[field])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("写第 %d 行失败: %v", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存 %s 失败: %v", path, err)
	}
	log.Printf("[Export] 已导出 %d 条记录到 %s", len(records), path)
	return nil
}
