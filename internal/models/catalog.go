package models

type Course struct {
	ID        string `json:"_id" redis:"id"`
	Key       string `json:"key" redis:"key"`
	Name      string `json:"name" redis:"name"`
	CreatedAt int64  `json:"createdAt" redis:"created_at"`
}

type CreateCourseRequest struct {
	Key  string `json:"key" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type RenameCourseRequest struct {
	Name string `json:"name" binding:"required"`
}

type Video struct {
	ID        string `json:"_id" redis:"id"`
	CourseKey string `json:"courseKey" redis:"course_key"`
	Title     string `json:"title" redis:"title"`
	YouTubeID string `json:"yt" redis:"yt"`
	Order     int    `json:"order" redis:"order"`
}

type CreateVideoRequest struct {
	CourseKey string `json:"courseKey" binding:"required"`
	Title     string `json:"title" binding:"required"`
	YouTubeID string `json:"yt" binding:"required"`
	Order     *int   `json:"order,omitempty"`
}

// VideoPatch carries only the fields being changed.
type VideoPatch struct {
	Title     *string `json:"title,omitempty"`
	YouTubeID *string `json:"yt,omitempty"`
	Order     *int    `json:"order,omitempty"`
}

func (p VideoPatch) Empty() bool {
	return p.Title == nil && p.YouTubeID == nil && p.Order == nil
}
