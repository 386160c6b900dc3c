package sessions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/match-odds/internal/demographics"
	"github.com/kartoza/match-odds/internal/funnel"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 0, sess.Current)
	assert.Equal(t, 100.0, sess.LastProgress)

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestGetUnknownOrMalformedID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("6f1c3c1e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNextIsGatedByAnswers(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Create()
	require.NoError(t, err)

	_, err = s.Update(sess.ID, (*Session).Next)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnanswered))
	assert.Equal(t, "Please select a city to continue", err.Error())

	_, err = s.Update(sess.ID, func(sess *Session) error {
		sess.Answers.Location = &demographics.Profile{Name: "Chicago city, Illinois", Population: 100}
		return nil
	})
	require.NoError(t, err)

	sess, err = s.Update(sess.ID, (*Session).Next)
	require.NoError(t, err)
	assert.Equal(t, funnel.QuestionGender, sess.Current)

	_, err = s.Update(sess.ID, (*Session).Next)
	assert.ErrorIs(t, err, ErrUnanswered)

	sess, err = s.Update(sess.ID, back)
	require.NoError(t, err)
	assert.Equal(t, funnel.QuestionLocation, sess.Current)
	assert.NotNil(t, sess.Answers.Location, "back keeps answers")

	sess, err = s.Update(sess.ID, back)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Current)
}

func TestWalkToCompletion(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Create()
	require.NoError(t, err)

	_, err = s.Update(sess.ID, func(sess *Session) error {
		sess.Answers = funnel.Answers{
			Location:         &demographics.Profile{Name: "Chicago city, Illinois", Population: 100},
			GenderPreference: []funnel.Gender{funnel.GenderWoman},
			AgeRange:         &funnel.AgeRange{Min: 25, Max: 35},
			Education:        funnel.EducationAny,
			DatingIntent:     funnel.IntentCasual,
			LooksPreference:  funnel.LooksDecent,
			SocialSkills:     funnel.SocialOkay,
		}
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < funnel.QuestionCount(); i++ {
		sess, err = s.Update(sess.ID, (*Session).Next)
		require.NoError(t, err, "question %d", i)
	}
	assert.True(t, sess.Completed())

	sess, err = s.Update(sess.ID, (*Session).Next)
	require.NoError(t, err)
	assert.Equal(t, funnel.QuestionCount(), sess.Current)

	sess, err = s.Update(sess.ID, func(sess *Session) error {
		sess.Reset()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Current)
	assert.Equal(t, funnel.Answers{}, sess.Answers)
}

func TestSetAnswersMovesBackToClearedQuestion(t *testing.T) {
	full := funnel.Answers{
		Location:         &demographics.Profile{Name: "Chicago city, Illinois", Population: 100},
		GenderPreference: []funnel.Gender{funnel.GenderWoman},
		AgeRange:         &funnel.AgeRange{Min: 25, Max: 35},
	}
	sess := &Session{Current: funnel.QuestionEducation}

	sess.SetAnswers(full)
	assert.Equal(t, funnel.QuestionEducation, sess.Current, "answers ahead of the cursor do not move it")

	cleared := full
	cleared.GenderPreference = nil
	sess.SetAnswers(cleared)
	assert.Equal(t, funnel.QuestionGender, sess.Current)
	assert.Nil(t, sess.Answers.GenderPreference)

	sess.SetAnswers(funnel.Answers{})
	assert.Equal(t, funnel.QuestionLocation, sess.Current)
}

func back(sess *Session) error {
	sess.Back()
	return nil
}

func TestUpdateErrorLeavesSessionUnchanged(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Create()
	require.NoError(t, err)

	_, err = s.Update(sess.ID, func(sess *Session) error {
		sess.Current = 5
		return errors.New("nope")
	})
	require.Error(t, err)

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Current)
}

func TestRenderSuppressesSmallChanges(t *testing.T) {
	sess := &Session{LastProgress: 100}
	assert.False(t, sess.Render(99.995))
	assert.Equal(t, 100.0, sess.LastProgress)
	assert.True(t, sess.Render(51))
	assert.Equal(t, 51.0, sess.LastProgress)
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)
	a, err := s.Create()
	require.NoError(t, err)
	b, err := s.Create()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x"), 0644))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, s.Delete(a.ID))
	assert.ErrorIs(t, s.Delete(a.ID), ErrNotFound)

	list, err = s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}
