package image

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"github.com/anoixa/tidypics/database/models"
	"github.com/anoixa/tidypics/database/repo/annotations"
	"github.com/rs/zerolog/log"
)

// 标签类型
const (
	TagTypeUser = "user"
	TagTypeWord = "word"
)

// unknownUserLabel 引用的用户已不存在时的标签文本
const unknownUserLabel = "unknown user"

// ErrInvalidTag 标签内容不合法
var ErrInvalidTag = errors.New("invalid photo tag")

// TagCoords 标签在图片上的框选区域
type TagCoords struct {
	X1     int `json:"x1"`
	Y1     int `json:"y1"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PhotoTag phototag 注解中保存的内容
// Type 为 user 时 Value 是被标记用户的 GUID，否则是标签文本
type PhotoTag struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	*TagCoords
}

// TagView 渲染用的单个标签
type TagView struct {
	*TagCoords
	Text string `json:"text"`
	ID   string `json:"id"`
}

// TagLink 标签的跳转信息
type TagLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// PhotoTags 图片的全部标签
type PhotoTags struct {
	Tags  []TagView        `json:"tags"`
	Links map[uint]TagLink `json:"links"` // 以注解 ID 为键
	JSON  string           `json:"-"`     // Tags 的 JSON 序列化结果
}

// AddPhotoTag 为图片添加标签
func (c *Controller) AddPhotoTag(ctx context.Context, img *models.Image, taggerGUID uint, tag PhotoTag, accessID int) (*models.Annotation, error) {
	switch tag.Type {
	case TagTypeUser:
		if _, err := strconv.ParseUint(tag.Value, 10, 64); err != nil {
			return nil, ErrInvalidTag
		}
	case TagTypeWord:
		if tag.Value == "" {
			return nil, ErrInvalidTag
		}
	default:
		return nil, ErrInvalidTag
	}
	if tc := tag.TagCoords; tc != nil && (tc.X1 < 0 || tc.Y1 < 0 || tc.Width <= 0 || tc.Height <= 0) {
		return nil, ErrInvalidTag
	}

	value, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}

	annotation := &models.Annotation{
		EntityGUID: img.ID,
		Subtype:    models.EntitySubtypeImage,
		Name:       models.AnnotationPhotoTag,
		Value:      string(value),
		ValueType:  models.ValueTypeText,
		OwnerGUID:  taggerGUID,
		AccessID:   accessID,
	}
	if err := c.Annotations.Create(ctx, annotation); err != nil {
		return nil, err
	}
	return annotation, nil
}

// GetPhotoTags 汇总查询者可见的标签，没有标签时返回 nil
func (c *Controller) GetPhotoTags(ctx context.Context, img *models.Image, viewerGUID uint) (*PhotoTags, error) {
	list, err := c.Annotations.Find(ctx, annotations.Query{
		EntityGUID: img.ID,
		Subtype:    models.EntitySubtypeImage,
		Name:       models.AnnotationPhotoTag,
		ViewerGUID: viewerGUID,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	parsed := make([]PhotoTag, len(list))
	var userIDs []uint
	for i, a := range list {
		if err := json.Unmarshal([]byte(a.Value), &parsed[i]); err != nil {
			log.Warn().Err(err).Uint("annotation", a.ID).Msg("[Tags] Malformed photo tag, rendering as text")
			parsed[i] = PhotoTag{Type: TagTypeWord, Value: a.Value}
			continue
		}
		if parsed[i].Type == TagTypeUser {
			if id, err := strconv.ParseUint(parsed[i].Value, 10, 64); err == nil {
				userIDs = append(userIDs, uint(id))
			}
		}
	}

	people, err := c.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	result := &PhotoTags{
		Tags:  make([]TagView, 0, len(list)),
		Links: make(map[uint]TagLink, len(list)),
	}
	for i, a := range list {
		tag := parsed[i]
		text := tag.Value
		link := c.opts.BaseURL + "search/?tag=" + url.QueryEscape(tag.Value) + "&subtype=image&object=object"

		if tag.Type == TagTypeUser {
			text = unknownUserLabel
			if id, err := strconv.ParseUint(tag.Value, 10, 64); err == nil {
				if u, ok := people[uint(id)]; ok {
					text = u.Name
				}
			}
			link = c.opts.BaseURL + "pg/photos/tagged/" + tag.Value
		}

		result.Tags = append(result.Tags, TagView{
			TagCoords: tag.TagCoords,
			Text:      text,
			ID:        strconv.FormatUint(uint64(a.ID), 10),
		})
		result.Links[a.ID] = TagLink{Text: text, URL: link}
	}

	data, err := json.Marshal(result.Tags)
	if err != nil {
		return nil, err
	}
	result.JSON = string(data)
	return result, nil
}
