package image

import (
	"context"

	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/annotations"
)

// ViewCounts 浏览统计
// Unique 只对所有者计算，Mine 只对非所有者的登录用户计算，其余情况为 0
type ViewCounts struct {
	Total  int `json:"total"`
	Unique int `json:"unique"`
	Mine   int `json:"mine"`
}

// AddView 记录一次浏览，所有者本人与非真人账号不计入，同一用户重复浏览都会计入
func (c *Controller) AddView(ctx context.Context, img *models.Image, viewerGUID uint) (bool, error) {
	if viewerGUID == 0 || viewerGUID == img.OwnerGUID {
		return false, nil
	}

	viewer, err := c.Users.GetByID(ctx, viewerGUID)
	if err != nil {
		return false, err
	}
	if !viewer.IsPerson() {
		return false, nil
	}

	err = c.Annotations.Create(ctx, &models.Annotation{
		EntityGUID: img.ID,
		Subtype:    models.EntitySubtypeImage,
		Name:       models.AnnotationView,
		Value:      "1",
		ValueType:  models.ValueTypeInteger,
		OwnerGUID:  viewerGUID,
		AccessID:   models.AccessPublic,
	})
	return err == nil, err
}

// GetViews 统计浏览量
func (c *Controller) GetViews(ctx context.Context, img *models.Image, viewerGUID uint) (*ViewCounts, error) {
	views, err := c.Annotations.Find(ctx, annotations.Query{
		EntityGUID: img.ID,
		Subtype:    models.EntitySubtypeImage,
		Name:       models.AnnotationView,
		Limit:      c.opts.MaxViewScan,
		ViewerGUID: viewerGUID,
	})
	if err != nil {
		return nil, err
	}

	counts := &ViewCounts{Total: len(views)}
	switch {
	case img.OwnerGUID == viewerGUID:
		viewers := make(map[uint]struct{})
		for _, v := range views {
			viewers[v.OwnerGUID] = struct{}{}
		}
		counts.Unique = len(viewers)
	case viewerGUID != 0:
		for _, v := range views {
			if v.OwnerGUID == viewerGUID {
				counts.Mine++
			}
		}
	}
	return counts, nil
}
