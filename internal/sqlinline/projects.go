package sqlinline

const QInsertProject = `--sql 0003a3ca-e448-43c4-8148-63792f0a0d46
insert into projects (
  ngo_id, title, description, skills, causes, work_mode, location,
  hours_per_week, duration_weeks, deadline, compensation, budget_minor, currency,
  status, published_at
) values (
  $1::uuid, $2::text, $3::text, $4::jsonb, $5::text[], $6::text, $7::jsonb,
  $8::int, $9::int, $10::timestamptz, $11::text, $12::bigint, $13::text,
  $14::text, $15::timestamptz
)
returning id::text, created_at, updated_at;
`

const QSelectProjectByID = `--sql fdf9fc9c-94c9-40da-b3cb-533d776e8166
select id::text, ngo_id::text, title, description, skills, causes, work_mode, location,
  hours_per_week, duration_weeks, deadline, compensation, budget_minor, currency,
  status, views_count, applications_count, published_at, created_at, updated_at
from projects
where id = $1::uuid
limit 1;
`

const QUpdateProject = `--sql 48a24622-bd6a-493d-923d-56bcbdd8c312
update projects set
  title = $2::text,
  description = $3::text,
  skills = $4::jsonb,
  causes = $5::text[],
  work_mode = $6::text,
  location = $7::jsonb,
  hours_per_week = $8::int,
  duration_weeks = $9::int,
  deadline = $10::timestamptz,
  compensation = $11::text,
  budget_minor = $12::bigint,
  currency = $13::text,
  status = $14::text,
  published_at = $15::timestamptz,
  updated_at = now()
where id = $1::uuid
returning updated_at;
`

const QDeleteProject = `--sql f61642cd-c87a-46d7-aa6d-f9603177f193
delete from projects
where id = $1::uuid;
`

const QListProjects = `--sql 20e5a6f7-8be8-41ef-9c9c-82fc6786f655
select id::text, ngo_id::text, title, description, skills, causes, work_mode, location,
  hours_per_week, duration_weeks, deadline, compensation, budget_minor, currency,
  status, views_count, applications_count, published_at, created_at, updated_at,
  count(*) over () as total
from projects
where (cardinality($1::text[]) = 0 or status = any($1::text[]))
  and ($2::text = '' or ngo_id::text = $2::text)
  and ($3::text = '' or title ilike '%' || $3::text || '%' or description ilike '%' || $3::text || '%')
  and ($4::text = ''
    or skills @> jsonb_build_array(jsonb_build_object('subskill', $4::text))
    or skills @> jsonb_build_array(jsonb_build_object('category', $4::text)))
  and ($5::text = '' or exists (select 1 from unnest(causes) as c(cause) where lower(c.cause) = lower($5::text)))
  and ($6::text = '' or work_mode = $6::text)
  and ($7::text = '' or compensation = $7::text)
order by
  case when $8::text = 'deadline' then deadline end asc nulls last,
  coalesce(published_at, created_at) desc
limit nullif($9::int, 0) offset $10::int;
`

const QIncrementProjectViews = `--sql 252f4b16-7c5d-4905-bfe8-ea04b5d294c8
update projects
set views_count = views_count + 1
where id = $1::uuid;
`

const QCountProjectsCreatedSince = `--sql d5b858ca-6867-492a-aa92-b2ebc28e6165
select count(*)
from projects
where ngo_id = $1::uuid
  and created_at >= $2::timestamptz;
`

const QInsertApplication = `--sql 88afd7d5-1b63-44b2-b615-c4b19f9015ce
with inserted as (
  insert into applications (
    project_id, volunteer_id, ngo_id, cover_letter, availability, ngo_note, status, match_score
  ) values (
    $1::uuid, $2::uuid, $3::uuid, $4::text, $5::text, $6::text, $7::text, $8::int
  )
  on conflict (project_id, volunteer_id) do nothing
  returning id, created_at, updated_at
), bumped as (
  update projects
  set applications_count = applications_count + 1
  where id = $1::uuid
    and exists (select 1 from inserted)
)
select id::text, created_at, updated_at
from inserted;
`

const QSelectApplicationByID = `--sql be976285-d92c-4ed4-8713-2b06d055f97d
select id::text, project_id::text, volunteer_id::text, ngo_id::text, cover_letter, availability,
  ngo_note, status, match_score, created_at, updated_at
from applications
where id = $1::uuid
limit 1;
`

const QUpdateApplication = `--sql 88656896-8e62-42ca-9549-da3e894a3ae8
update applications set
  cover_letter = $2::text,
  availability = $3::text,
  ngo_note = $4::text,
  status = $5::text,
  match_score = $6::int,
  updated_at = now()
where id = $1::uuid
returning updated_at;
`

const QListApplicationsByProject = `--sql 5bb4201e-8e18-4107-a6d7-fa532874c053
select id::text, project_id::text, volunteer_id::text, ngo_id::text, cover_letter, availability,
  ngo_note, status, match_score, created_at, updated_at
from applications
where project_id = $1::uuid
  and ($2::text = '' or status = $2::text)
order by created_at desc;
`

const QListApplicationsByVolunteer = `--sql fba06887-b6ee-436f-9f99-c17091dba3cf
select id::text, project_id::text, volunteer_id::text, ngo_id::text, cover_letter, availability,
  ngo_note, status, match_score, created_at, updated_at
from applications
where volunteer_id = $1::uuid
order by created_at desc;
`

const QCountApplicationsSince = `--sql b50db523-8668-4c25-891f-e7c24e4278aa
select count(*)
from applications
where volunteer_id = $1::uuid
  and created_at >= $2::timestamptz;
`

const QApplicationExistsBetween = `--sql f5e86557-3183-49f2-aa20-ebebd5f5789d
select exists (
  select 1
  from applications
  where ngo_id = $1::uuid
    and volunteer_id = $2::uuid
);
`

const QInsertProfileUnlock = `--sql 68064ea9-872b-456c-895b-77444a12268e
insert into profile_unlocks (ngo_id, volunteer_id, source, transaction_id)
values ($1::uuid, $2::uuid, $3::text, nullif($4::text, '')::uuid)
on conflict (ngo_id, volunteer_id) do update set ngo_id = excluded.ngo_id
returning id::text, source, coalesce(transaction_id::text, ''), created_at;
`

const QProfileUnlockExists = `--sql 19c71d12-a89e-4f9c-b44a-65efad226fa9
select exists (
  select 1
  from profile_unlocks
  where ngo_id = $1::uuid
    and volunteer_id = $2::uuid
);
`

const QListProfileUnlocksByNGO = `--sql 71a5b581-353a-4aea-8394-19acc7cc2fb4
select id::text, ngo_id::text, volunteer_id::text, source, coalesce(transaction_id::text, ''), created_at
from profile_unlocks
where ngo_id = $1::uuid
order by created_at desc;
`
