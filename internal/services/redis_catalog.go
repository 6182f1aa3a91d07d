package services

import (
	"context"
	"fmt"
	"time"

	"learn-and-earn/internal/models"

	"github.com/redis/go-redis/v9"
)

func (s *RedisService) scanHash(ctx context.Context, key string, dst interface{}) error {
	cmd := s.client.HGetAll(ctx, key)
	fields, err := cmd.Result()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err := cmd.Scan(dst); err != nil {
		return fmt.Errorf("failed to scan %s: %w", key, err)
	}
	return nil
}

func (s *RedisService) CreateCourse(ctx context.Context, course *models.Course) error {
	ok, err := s.client.SetNX(ctx, fmt.Sprintf(KeyCourseByKey, course.Key), course.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve course key: %w", err)
	}
	if !ok {
		return fmt.Errorf("course %s: %w", course.Key, ErrConflict)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, fmt.Sprintf(KeyCourse, course.ID),
			"id", course.ID,
			"key", course.Key,
			"name", course.Name,
			"created_at", course.CreatedAt,
		)
		pipe.ZAdd(ctx, KeyCourses, redis.Z{Score: float64(course.CreatedAt), Member: course.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}
	return nil
}

func (s *RedisService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := s.scanHash(ctx, fmt.Sprintf(KeyCourse, id), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *RedisService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	ids, err := s.client.ZRange(ctx, KeyCourses, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	courses := make([]*models.Course, 0, len(ids))
	for _, id := range ids {
		course, err := s.GetCourse(ctx, id)
		if err != nil {
			continue
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func (s *RedisService) RenameCourse(ctx context.Context, id, name string) (*models.Course, error) {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.client.HSet(ctx, fmt.Sprintf(KeyCourse, id), "name", name).Err(); err != nil {
		return nil, fmt.Errorf("failed to rename course: %w", err)
	}
	course.Name = name
	return course, nil
}

// DeleteCourse removes the course together with its videos.
func (s *RedisService) DeleteCourse(ctx context.Context, id string) error {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return err
	}

	videosKey := fmt.Sprintf(KeyCourseVideos, course.Key)
	videoIDs, err := s.client.ZRange(ctx, videosKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list course videos: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, videoID := range videoIDs {
			pipe.Del(ctx, fmt.Sprintf(KeyVideo, videoID))
		}
		pipe.Del(ctx, videosKey, fmt.Sprintf(KeyCourse, id), fmt.Sprintf(KeyCourseByKey, course.Key))
		pipe.ZRem(ctx, KeyCourses, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}

func (s *RedisService) CreateVideo(ctx context.Context, video *models.Video, order *int) error {
	exists, err := s.client.Exists(ctx, fmt.Sprintf(KeyCourseByKey, video.CourseKey)).Result()
	if err != nil {
		return fmt.Errorf("failed to check course: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("course %s: %w", video.CourseKey, ErrNotFound)
	}

	videosKey := fmt.Sprintf(KeyCourseVideos, video.CourseKey)
	if order != nil {
		video.Order = *order
	} else {
		count, err := s.client.ZCard(ctx, videosKey).Result()
		if err != nil {
			return fmt.Errorf("failed to count videos: %w", err)
		}
		video.Order = int(count) + 1
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, fmt.Sprintf(KeyVideo, video.ID),
			"id", video.ID,
			"course_key", video.CourseKey,
			"title", video.Title,
			"yt", video.YouTubeID,
			"order", video.Order,
		)
		pipe.ZAdd(ctx, videosKey, redis.Z{Score: float64(video.Order), Member: video.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	return nil
}

func (s *RedisService) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	if err := s.scanHash(ctx, fmt.Sprintf(KeyVideo, id), &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// ListVideos returns a course's videos in playlist order.
func (s *RedisService) ListVideos(ctx context.Context, courseKey string) ([]*models.Video, error) {
	ids, err := s.client.ZRange(ctx, fmt.Sprintf(KeyCourseVideos, courseKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	videos := make([]*models.Video, 0, len(ids))
	for _, id := range ids {
		video, err := s.GetVideo(ctx, id)
		if err != nil {
			continue
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func (s *RedisService) UpdateVideo(ctx context.Context, id string, patch models.VideoPatch) (*models.Video, error) {
	video, err := s.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}

	var values []interface{}
	if patch.Title != nil {
		video.Title = *patch.Title
		values = append(values, "title", video.Title)
	}
	if patch.YouTubeID != nil {
		video.YouTubeID = *patch.YouTubeID
		values = append(values, "yt", video.YouTubeID)
	}
	if patch.Order != nil {
		video.Order = *patch.Order
		values = append(values, "order", video.Order)
	}
	if len(values) == 0 {
		return video, nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, fmt.Sprintf(KeyVideo, id), values...)
		if patch.Order != nil {
			pipe.ZAdd(ctx, fmt.Sprintf(KeyCourseVideos, video.CourseKey), redis.Z{Score: float64(video.Order), Member: id})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}
	return video, nil
}

func (s *RedisService) DeleteVideo(ctx context.Context, id string) error {
	video, err := s.GetVideo(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, fmt.Sprintf(KeyVideo, id))
		pipe.ZRem(ctx, fmt.Sprintf(KeyCourseVideos, video.CourseKey), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

func (s *RedisService) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, fmt.Sprintf(KeyPayment, p.ID),
			"id", p.ID,
			"name", p.Name,
			"email", p.Email,
			"phone", p.Phone,
			"screenshot", p.Screenshot,
			"status", string(p.Status),
			"date", p.Date,
		)
		pipe.ZAdd(ctx, KeyPayments, redis.Z{Score: float64(p.Date), Member: p.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *RedisService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := s.scanHash(ctx, fmt.Sprintf(KeyPayment, id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPayments returns payments newest first.
func (s *RedisService) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	ids, err := s.client.ZRevRange(ctx, KeyPayments, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]*models.Payment, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPayment(ctx, id)
		if err != nil {
			continue
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (s *RedisService) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Payment, error) {
	p, err := s.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.client.HSet(ctx, fmt.Sprintf(KeyPayment, id), "status", string(status)).Err(); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	p.Status = status
	return p, nil
}

var createWithdrawalScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 0 then
		return -3
	end

	local balance = tonumber(redis.call("HGET", KEYS[1], "balance") or "0")
	local amount = tonumber(ARGV[1])
	if balance < amount then
		return -1
	end

	redis.call("HINCRBY", KEYS[1], "balance", "-" .. ARGV[1])
	redis.call("HINCRBY", KEYS[1], "locked_balance", ARGV[1])
	redis.call("HSET", KEYS[2],
		"id", ARGV[2],
		"email", ARGV[4],
		"name", ARGV[5],
		"amount", ARGV[1],
		"status", "pending",
		"requested_at", ARGV[3],
		"resolved_at", "0")
	redis.call("ZADD", KEYS[3], ARGV[3], ARGV[2])
	redis.call("ZADD", KEYS[4], ARGV[3], ARGV[2])
	return balance - amount
`)

// CreateWithdrawal moves the requested amount from balance to locked balance
// and records a pending withdrawal. It returns the remaining balance.
func (s *RedisService) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) (int64, error) {
	keys := []string{
		userKey(w.Email),
		fmt.Sprintf(KeyWithdrawal, w.ID),
		KeyWithdrawals,
		fmt.Sprintf(KeyUserWithdrawals, w.Email),
	}
	res, err := createWithdrawalScript.Run(ctx, s.client, keys, w.Amount, w.ID, w.RequestedAt, w.Email, w.Name).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	switch res {
	case -1:
		return 0, ErrInsufficientBalance
	case -3:
		return 0, fmt.Errorf("%s: %w", w.Email, ErrUserNotFound)
	}
	return res, nil
}

func (s *RedisService) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.scanHash(ctx, fmt.Sprintf(KeyWithdrawal, id), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWithdrawals returns all withdrawals, or one user's when email is set,
// newest first.
func (s *RedisService) ListWithdrawals(ctx context.Context, email string) ([]*models.Withdrawal, error) {
	key := KeyWithdrawals
	if email != "" {
		key = fmt.Sprintf(KeyUserWithdrawals, email)
	}

	ids, err := s.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	withdrawals := make([]*models.Withdrawal, 0, len(ids))
	for _, id := range ids {
		w, err := s.GetWithdrawal(ctx, id)
		if err != nil {
			continue
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, nil
}

var settleWithdrawalScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 0 then
		return -3
	end
	if redis.call("HGET", KEYS[1], "status") ~= "pending" then
		return -1
	end

	local amount = redis.call("HGET", KEYS[1], "amount")
	local locked = tonumber(redis.call("HGET", KEYS[2], "locked_balance") or "0")
	local remaining = locked - tonumber(amount)
	if remaining < 0 then
		remaining = 0
	end
	redis.call("HSET", KEYS[2], "locked_balance", tostring(remaining))

	if ARGV[1] == "1" then
		redis.call("HSET", KEYS[1], "status", "approved", "resolved_at", ARGV[2])
	else
		redis.call("HINCRBY", KEYS[2], "balance", amount)
		redis.call("HSET", KEYS[1], "status", "rejected", "resolved_at", ARGV[2])
	end
	return 1
`)

// SettleWithdrawal approves (pays out the locked amount) or rejects (refunds
// it) a pending withdrawal exactly once.
func (s *RedisService) SettleWithdrawal(ctx context.Context, id string, approve bool, now time.Time) (*models.Withdrawal, error) {
	w, err := s.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}

	flag := "0"
	if approve {
		flag = "1"
	}

	keys := []string{fmt.Sprintf(KeyWithdrawal, id), userKey(w.Email)}
	res, err := settleWithdrawalScript.Run(ctx, s.client, keys, flag, now.UnixMilli()).Int64()
	if err != nil {
		return nil, fmt.Errorf("failed to settle withdrawal: %w", err)
	}

	switch res {
	case -1:
		return nil, fmt.Errorf("withdrawal %s is %s: %w", id, w.Status, ErrAlreadySettled)
	case -3:
		return nil, fmt.Errorf("withdrawal %s: %w", id, ErrNotFound)
	}

	return s.GetWithdrawal(ctx, id)
}
