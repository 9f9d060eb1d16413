//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"campus-lab/domain"
)

const userPrefix = "user:"

func userKey(id string) string { return userPrefix + id }

type IUserRepository interface {
	Save(user domain.User) error
	Get(id string) (domain.User, error)

	GetTxn(txn Txn, id string) (domain.User, error)
	SaveTxn(txn Txn, user domain.User) error
	DeleteTxn(txn Txn, id string) error
}

type UserRepository struct {
	store DocumentStore
	log   *slog.Logger
}

func NewUserRepository(store DocumentStore, log *slog.Logger) UserRepository {
	return UserRepository{store: store, log: log}
}

func (r UserRepository) Save(user domain.User) error {
	return r.store.Update(func(txn Txn) error {
		return r.SaveTxn(txn, user)
	})
}

func (r UserRepository) Get(id string) (domain.User, error) {
	var user domain.User
	err := r.store.View(func(txn Txn) error {
		var err error
		user, err = r.GetTxn(txn, id)
		return err
	})
	return user, err
}

func (r UserRepository) GetTxn(txn Txn, id string) (domain.User, error) {
	value, err := txn.Get(userKey(id))
	if err != nil {
		return domain.User{}, err
	}
	return decodeUser(value)
}

func (r UserRepository) SaveTxn(txn Txn, user domain.User) error {
	value, err := encodeUser(user)
	if err != nil {
		return err
	}
	return txn.Set(userKey(user.ID), value)
}

func (r UserRepository) DeleteTxn(txn Txn, id string) error {
	return txn.Delete(userKey(id))
}

func encodeUser(user domain.User) ([]byte, error) {
	return json.Marshal(domain.UserFields{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		Role:             user.Role,
		FieldOfExpertise: user.FieldOfExpertise,
		Grade:            user.Grade,
		EnrolledCourses:  user.EnrolledCourses,
		Bookmarks:        user.Bookmarks,
		LikedPosts:       user.LikedPosts,
	})
}

func decodeUser(value []byte) (domain.User, error) {
	var fields domain.UserFields
	if err := json.Unmarshal(value, &fields); err != nil {
		return domain.User{}, fmt.Errorf("user document: %w", err)
	}
	user, violations := domain.NewUser(fields)
	if !violations.OK() {
		return domain.User{}, fmt.Errorf("user document: %s", violations.String())
	}
	return user, nil
}
