package service

import (
	"github.com/jimyag/netrca/internal/netrca/entity"
	"github.com/jimyag/netrca/internal/netrca/repository/model"
	"github.com/jinzhu/copier"
)

// snapshotModelToEntity 将 model.Snapshot 转换为 entity.Snapshot
func snapshotModelToEntity(m *model.Snapshot) (*entity.Snapshot, error) {
	e := &entity.Snapshot{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}
	// 始终输出数组，避免 JSON 中出现 null
	if e.Devices == nil {
		e.Devices = []string{}
	}
	return e, nil
}
